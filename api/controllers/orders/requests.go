package orders

// cancelRequest carries an optional free-form reason.
type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// completeRequest only admits buyer confirmation; auto completion belongs to
// the scheduler.
type completeRequest struct {
	CompletedBy string `json:"completedBy" validate:"omitempty,oneof=buyer"`
}

type createDisputeRequest struct {
	Reason      string   `json:"reason" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Evidence    []string `json:"evidence" validate:"required,min=1,max=10,dive,required"`
}

type resolveDisputeRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=refund reject"`
	AdminNotes string `json:"adminNotes" validate:"max=2000"`
}
