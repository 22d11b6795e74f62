package render

// renderRequest is the JSON body sent to the render worker. Field names
// follow the worker's contract.
type renderRequest struct {
	VideoID   string `json:"videoId"`
	Script    string `json:"script"`
	SceneName string `json:"sceneName"`
}

// renderResponse is the worker's reply. On success Filename holds the
// storage key of the produced video; on failure Error carries the detail.
type renderResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}
