package domain

const (
	ServerVersion = "0.0.0-poc.1.0.2"
	APIVersion    = "0.0.0-poc.1.0.0"
)

type ActionName string

const (
	ActionHandshake    ActionName = "handshake"
	ActionRequestMedia ActionName = "request_media"
	ActionGetChunk     ActionName = "get_chunk"
	ActionGetVid       ActionName = "get_vid"

	ActionChunk  ActionName = "chunk"
	ActionVid    ActionName = "vid"
	ActionMedia  ActionName = "media"
	ActionStatus ActionName = "status"
	ActionError  ActionName = "error"
)

const (
	VideoCodec32Vid = "32vid"
	AudioCodecDFPWM = "dfpwm"
)

const (
	MsgParseFailed   = "Faild to parse Json"
	MsgForbiddenID   = "You dare not use special Characters"
	MsgInternalError = "Internal server error"
)

// Response is any payload sent back on a connection.
// Every implementation serialises with an "action" discriminator.
type Response interface {
	ActionName() ActionName
}

type ErrorResponse struct {
	Action  ActionName `json:"action"`
	Message string     `json:"message"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Action: ActionError, Message: message}
}

func (r ErrorResponse) ActionName() ActionName { return r.Action }

type ChunkResponse struct {
	Action ActionName `json:"action"`
	Chunk  string     `json:"chunk"`
}

func (r ChunkResponse) ActionName() ActionName { return r.Action }

type VidResponse struct {
	Action ActionName `json:"action"`
	Lines  []string   `json:"lines"`
}

func (r VidResponse) ActionName() ActionName { return r.Action }

type VersionInfo struct {
	Version string `json:"version"`
}

type Capabilities struct {
	Video []string `json:"video"`
	Audio []string `json:"audio"`
}

type HandshakeResponse struct {
	Action       ActionName   `json:"action"`
	Server       VersionInfo  `json:"server"`
	API          VersionInfo  `json:"api"`
	Capabilities Capabilities `json:"capabilities"`
}

func (r HandshakeResponse) ActionName() ActionName { return r.Action }

// NewHandshakeResponse returns the fixed capability declaration.
func NewHandshakeResponse() HandshakeResponse {
	return HandshakeResponse{
		Action: ActionHandshake,
		Server: VersionInfo{Version: ServerVersion},
		API:    VersionInfo{Version: APIVersion},
		Capabilities: Capabilities{
			Video: []string{VideoCodec32Vid},
			Audio: []string{AudioCodecDFPWM},
		},
	}
}

type MediaResponse struct {
	Action   ActionName `json:"action"`
	ID       AssetID    `json:"id"`
	Title    string     `json:"title"`
	HasVideo bool       `json:"has_video"`
}

func (r MediaResponse) ActionName() ActionName { return r.Action }

// StatusResponse carries progress of a running download.
type StatusResponse struct {
	Action  ActionName `json:"action"`
	Message string     `json:"message"`
}

func NewStatusResponse(message string) StatusResponse {
	return StatusResponse{Action: ActionStatus, Message: message}
}

func (r StatusResponse) ActionName() ActionName { return r.Action }
