package descriptions

// Comprehensive tool descriptions with practical examples and use cases

const (
	TemplateAnalyzeDescription = `Discover every fillable field in a PDF template and map it to the canonical schema.

**When to use:** Before filling a new template, or after a template file has been updated, to see what fields it exposes and how they resolve.

**Why it's useful:** Handles both interactive forms and flat scanned-style layouts, attaches the section and visual label for each field, and classifies every mapping by confidence so you know exactly which fields need human review.

**Examples:**
• Onboard a new form: "Analyze account-opening.pdf and show me the unmapped fields"
• Re-check after edits: "Analyze kyc-form.pdf again now that the template changed"
• Review queue: "List the pending_review fields of loan-application.pdf"

**Common workflows:**
1. Onboarding: Analyze → review pending_review and suggest_new fields with mapping_update → fill
2. Template updates: Replace template → analyze → approved decisions carry over automatically
3. Debugging: Analyze → compare against formweld-inspect output when a field maps badly

**Best practices:** Resolve pending_review fields before the first production fill; approved and manually overridden mappings survive re-analysis.`

	TemplateFillDescription = `Fill a PDF template with a data record and write the result to the workspace output directory.

**When to use:** The template has been analyzed (or can be analyzed on the fly) and you have values keyed by canonical field names.

**Why it's useful:** Interactive form fields are filled natively so they stay editable; fields discovered on flat documents are stamped as positioned text. Every run gets an id and an audit entry recording which fields were involved, without persisting any values.

**Examples:**
• Single record: "Fill account-opening.pdf with {\"first_name\": \"Ada\", \"email_address\": \"ada@example.com\"}"
• Batch from CSV: "Fill loan-application.pdf once per row of applicants.csv"
• Checkboxes: "Set consent_marketing to yes" (truthy values check the box, anything else leaves it untouched)

**Common workflows:**
1. Interactive: analyze → mapping_update corrections → fill with one JSON record
2. Batch: prepare CSV with canonical headers → fill with data_file → collect outputs from the dated folder
3. Integration: upstream system posts records → fill → downstream picks up run ids from the audit log

**Best practices:** Key payloads by canonical field names; headers matching known synonyms are normalized automatically.`

	MappingUpdateDescription = `Apply a human review decision to one mapped field of a template.

**When to use:** A field came back pending_review or suggest_new, or an automatic mapping is simply wrong.

**Why it's useful:** The decision is persisted with High confidence and survives every later re-analysis of the template. When the correction disagrees with the automatic proposal it is also appended to an immutable correction log for later model improvement.

**Examples:**
• Fix a wrong guess: "Map txt_phone of kyc-form.pdf to mobile_number instead"
• Approve a weak match: "Approve the proposed email_address mapping for contact_email"
• New canonical field: "After adding branch_code to the schema, map fld_branch to it"

**Common workflows:**
1. Review queue: analyze → walk pending_review fields → approve or override each
2. Feedback loop: corrections accumulate in the log → periodically mined for synonym table updates

**Best practices:** Use status approved when confirming a proposal and manual_override when replacing it; pass reviewed_by so the audit trail names the reviewer.`

	SchemaFieldsDescription = `List the canonical field schema that template fields are mapped onto.

**When to use:** To see what canonical ids exist before reviewing mappings or preparing a data record.

**Why it's useful:** Shows each field's id, data type, section, description, and synonyms, which is exactly the context the mapping engine indexes.

**Examples:**
• Prepare a payload: "Which canonical ids does this workspace accept?"
• Review support: "What does residential_address cover, and what are its synonyms?"

**Best practices:** Keep descriptions and synonyms rich; they are the matching signal for every future template.`

	SchemaMatchDescription = `Run one similarity query against the canonical schema and return ranked candidates.

**When to use:** To check how a label or phrase would resolve without analyzing a whole template, or to debug a surprising mapping.

**Why it's useful:** Exposes the exact candidate ranking and distances the mapping engine sees, including the synonym fast path.

**Examples:**
• Probe the matcher: "What does 'Date of Birth (DD/MM/YYYY)' resolve to?"
• Threshold check: "Is the distance for 'yearly salary' under the strong-match threshold?"

**Best practices:** Distances below 0.40 auto-map, below 0.75 queue for review, anything else suggests a new canonical field.`

	ServerInfoDescription = `Get server information, workspace layout, canonical schema size, and usage guidance.

**When to use:** First call in a new session, or when unsure where templates and outputs live.

**Why it's useful:** Reports the workspace directories, the number of canonical fields loaded, limits, and the list of available tools with a suggested workflow.`
)
