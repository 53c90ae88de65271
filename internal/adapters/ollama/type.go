package ollama

type AIRequest struct {
	Model   string     `json:"model"`
	System  string     `json:"system,omitempty"`
	Prompt  string     `json:"prompt"`
	Images  []string   `json:"images,omitempty"` // base64, for vision models
	Stream  bool       `json:"stream"`
	Format  string     `json:"format,omitempty"`
	Options *AIOptions `json:"options,omitempty"`
}

type AIOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}
