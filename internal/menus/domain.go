package menus

// Input is the writable part of a menu entry.
type Input struct {
	Name      string  `json:"name" validate:"required,max=128"`
	Path      string  `json:"path" validate:"max=256"`
	Icon      string  `json:"icon" validate:"max=64"`
	ParentID  *string `json:"parentId" validate:"omitempty,uuid"`
	SortOrder int     `json:"sortOrder"`
	IsVisible *bool   `json:"isVisible"`
}

func (in Input) visible() bool {
	return in.IsVisible == nil || *in.IsVisible
}
