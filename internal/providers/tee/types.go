package tee

// MaxReportData is the TDX report data size
const MaxReportData = 64

// DefaultKeyAlgorithm is used for key derivation
const DefaultKeyAlgorithm = "secp256k1"

// Info describes the CVM instance
type Info struct {
	AppID           string `json:"app_id"`
	InstanceID      string `json:"instance_id"`
	AppCert         string `json:"app_cert"`
	TcbInfo         string `json:"tcb_info"`
	AppName         string `json:"app_name"`
	DeviceID        string `json:"device_id"`
	OSImageHash     string `json:"os_image_hash,omitempty"`
	KeyProviderInfo string `json:"key_provider_info,omitempty"`
	ComposeHash     string `json:"compose_hash,omitempty"`
	VMConfig        string `json:"vm_config,omitempty"`
}

// Quote is a TDX attestation quote
type Quote struct {
	Quote      string `json:"quote"`
	EventLog   string `json:"event_log"`
	ReportData string `json:"report_data,omitempty"`
	VMConfig   string `json:"vm_config,omitempty"`
}

// Key is a derived key with its signature chain
type Key struct {
	Key            string   `json:"key"`
	SignatureChain []string `json:"signature_chain"`
}

// Signature is the result of signing with a derived key
type Signature struct {
	Signature      string   `json:"signature"`
	SignatureChain []string `json:"signature_chain"`
	PublicKey      string   `json:"public_key"`
}

// Verification reports whether a signature is valid
type Verification struct {
	Valid bool `json:"valid"`
}

// Request bodies accepted by the HTTP layer. Byte fields are hex.

type QuoteRequest struct {
	ReportData string `json:"report_data"`
}

type KeyRequest struct {
	Path    string `json:"path,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

type SignRequest struct {
	Algorithm string `json:"algorithm"`
	Data      string `json:"data"`
}

type VerifyRequest struct {
	Algorithm string `json:"algorithm"`
	Data      string `json:"data"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
}

type EventRequest struct {
	Event   string `json:"event"`
	Payload string `json:"payload"`
}
