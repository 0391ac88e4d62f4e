package fill

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// nativeValue is one value destined for an interactive form field.
type nativeValue struct {
	name          string
	value         string
	checkbox      bool
	exportOptions []string
}

// writeNativeValues copies the template to outputPath with form values
// applied. Text fields get a string value, checkboxes get their on-state
// name as both value and appearance state. NeedAppearances is set so
// viewers regenerate field appearances for the new values.
func writeNativeValues(templatePath, outputPath string, values []nativeValue) error {
	f, err := os.Open(templatePath)
	if err != nil {
		return fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return fmt.Errorf("failed to ensure page count: %w", err)
	}

	if len(values) > 0 {
		if err := applyFormValues(ctx, values); err != nil {
			return err
		}
	}

	if err := api.WriteContextFile(ctx, outputPath); err != nil {
		return fmt.Errorf("failed to write filled PDF: %w", err)
	}
	return nil
}

func applyFormValues(ctx *model.Context, values []nativeValue) error {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return fmt.Errorf("template has no interactive form")
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return fmt.Errorf("failed to dereference AcroForm: %w", err)
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return fmt.Errorf("interactive form has no fields")
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return fmt.Errorf("failed to dereference form fields: %w", err)
	}

	byName := make(map[string]nativeValue, len(values))
	for _, v := range values {
		byName[v.name] = v
	}

	for i, fieldRef := range fieldsArray {
		fieldDict, err := ctx.DereferenceDict(fieldRef)
		if err != nil || fieldDict == nil {
			continue
		}
		name := fieldName(ctx, fieldDict, i)
		v, ok := byName[name]
		if !ok {
			continue
		}
		if v.checkbox {
			setCheckboxValue(ctx, fieldDict, v)
		} else {
			setTextValue(fieldDict, v.value)
		}
	}

	acroFormDict["NeedAppearances"] = types.Boolean(true)
	return nil
}

func fieldName(ctx *model.Context, fieldDict types.Dict, index int) string {
	if nameObj, found := fieldDict.Find("T"); found {
		if name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			return name
		}
	}
	return fmt.Sprintf("field_%d", index)
}

// setTextValue stores the string value and drops any cached appearance
// stream so NeedAppearances takes effect.
func setTextValue(fieldDict types.Dict, value string) {
	fieldDict["V"] = types.StringLiteral(types.EncodeUTF16String(value))
	delete(fieldDict, "AP")
}

// setCheckboxValue sets the on-state as value and appearance state on the
// field and every kid widget. Only checking is supported; unchecked boxes
// never reach this path.
func setCheckboxValue(ctx *model.Context, fieldDict types.Dict, v nativeValue) {
	on := types.Name(checkboxOnState(v.exportOptions))
	fieldDict["V"] = on
	fieldDict["AS"] = on

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kidsArray, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kidsArray {
				if kidDict, err := ctx.DereferenceDict(kid); err == nil && kidDict != nil {
					kidDict["AS"] = on
				}
			}
		}
	}
}
