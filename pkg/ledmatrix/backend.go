package ledmatrix

// Backend is the device that actually shows pixels: the HUB75 GPIO
// driver, a simulator or a test recorder.
//
// Present hands a finished frame to the backend. The canvas is only
// borrowed for the duration of the call; implementations copy or encode
// whatever they need and must not touch it after returning.
type Backend interface {
	// Initialize prepares the device for a validated configuration
	Initialize(cfg PanelConfig) error
	// Present makes frame the displayed image
	Present(frame *Canvas) error
	// Close releases the device
	Close() error
}
