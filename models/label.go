package models

// InvalidLabelText marks an image as explicitly not labelable.
const InvalidLabelText = "INVALID"

// Label is the text annotation of one image. It maps to one entry of a batch's labels.json.
type Label struct {
	Text      string `json:"text"`
	UpdatedBy string `json:"updated_by"`
	UpdatedAt string `json:"updated_at"`
}

// IsInvalid reports whether the label marks the image as not labelable.
func (l Label) IsInvalid() bool {
	return l.Text == InvalidLabelText
}

// Image is a file found in a batch folder, paired with its labeled status.
type Image struct {
	Name    string `json:"name"`
	Labeled bool   `json:"labeled"`
}
