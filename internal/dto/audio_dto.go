package dto

type StartAudioRequest struct {
	Voice string `json:"voice" form:"voice" validate:"omitempty,max=64,alphanum"`
}

type StartAudioResponse struct {
	JobId       string `json:"job_id"`
	ProgressUrl string `json:"progress_url"`
	AudioUrl    string `json:"audio_url"`
	Degraded    bool   `json:"degraded"`
}

type AudioProgressResponse struct {
	JobId   string `json:"job_id"`
	Percent int    `json:"percent"`
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
}

// SynthesisJobMessage is the payload published on the audio job topic
type SynthesisJobMessage struct {
	JobId     string `json:"job_id"`
	SessionId string `json:"session_id"`
	BookId    string `json:"book_id"`
	Text      string `json:"text"`
	Voice     string `json:"voice"`
}
