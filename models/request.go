package models

// Operation selects what a provider is asked to do.
type Operation string

const (
	OperationGenerate Operation = "generate"
	OperationEmbed    Operation = "embed"
)

// Request is one provider invocation. Credential is forwarded only in the
// outbound request headers and must never be logged.
type Request struct {
	Provider   string
	Model      string
	Credential string
	Input      string
	Operation  Operation
}
