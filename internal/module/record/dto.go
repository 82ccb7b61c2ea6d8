package record

// CreateRecordRequest represents the input for creating a record.
type CreateRecordRequest struct {
	Name        string  `json:"name" form:"name" binding:"required,min=1,max=255"`
	Description *string `json:"description" form:"description" binding:"omitempty,max=10000"`
}

// UpdateRecordRequest represents a partial update. Omitted fields are left
// unchanged.
type UpdateRecordRequest struct {
	Name        *string `json:"name" form:"name" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description" form:"description" binding:"omitempty,max=10000"`
}

// IDResponse carries the id of the record a mutation touched.
type IDResponse struct {
	ID string `json:"id"`
}
