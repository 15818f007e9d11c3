package cart

// SetQuantityRequest is the body of a quantity update. A pointer
// distinguishes an explicit zero, which removes the line, from an
// absent field.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}
