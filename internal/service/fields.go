package service

// Field names an article attribute exposed by the edit form
type Field string

const (
	FieldTitle    Field = "title"
	FieldBody     Field = "body"
	FieldImage    Field = "image"
	FieldWriter   Field = "writer"
	FieldCategory Field = "category"
)

// FieldSet is an ordered set of editable fields
type FieldSet []Field

// Contains reports whether f is in the set
func (fs FieldSet) Contains(f Field) bool {
	for _, field := range fs {
		if field == f {
			return true
		}
	}
	return false
}

var (
	seniorEditorFields = FieldSet{FieldTitle, FieldBody, FieldImage, FieldWriter, FieldCategory}
	editorFields       = FieldSet{FieldBody, FieldImage, FieldWriter, FieldCategory}
)

// SelectEditableFields returns the fields an editor may submit.
// Only senior editors may change the title.
func SelectEditableFields(isSeniorEditor bool) FieldSet {
	src := editorFields
	if isSeniorEditor {
		src = seniorEditorFields
	}
	out := make(FieldSet, len(src))
	copy(out, src)
	return out
}
