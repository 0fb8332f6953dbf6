package request

type ReviewRequest struct {
	Text  string `json:"text" validate:"required,min=1"`
	Score int    `json:"score" validate:"required,min=1,max=10"`
}

type ReviewUpdateRequest struct {
	Text  *string `json:"text,omitempty" validate:"omitempty,min=1"`
	Score *int    `json:"score,omitempty" validate:"omitempty,min=1,max=10"`
}

type CommentRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}
