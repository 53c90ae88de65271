package ocr

// OcrParams is the Typhoon OCR request "params" field.
type OcrParams struct {
	Model             string  `json:"model"`     // e.g. "typhoon-ocr"
	TaskType          string  `json:"task_type"` // e.g. "default"
	MaxTokens         int     `json:"max_tokens"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

type OcrResponse struct {
	TotalPages      int         `json:"total_pages"`
	SuccessfulPages int         `json:"successful_pages"`
	FailedPages     int         `json:"failed_pages"`
	Results         []OcrResult `json:"results"`
	ProcessingTime  float64     `json:"processing_time"`
}

type OcrResult struct {
	Filename string      `json:"filename"`
	Success  bool        `json:"success"`
	Message  *OcrMessage `json:"message"`
	Error    any         `json:"error"`
	PageNum  *int        `json:"page_num"`
}

type OcrMessage struct {
	Model   string      `json:"model"`
	Choices []OcrChoice `json:"choices"`
}

type OcrChoice struct {
	FinishReason string         `json:"finish_reason"`
	Index        int            `json:"index"`
	Message      OcrChatMessage `json:"message"`
}

type OcrChatMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// pageContent is the structured form some OCR models return per page.
type pageContent struct {
	NaturalText string `json:"natural_text"`
}
