package views

import "fmt"

// ViewState is embedded by every view model: the terminal size plus the
// one-line message shown under the content.
type ViewState struct {
	Width      int
	Height     int
	Message    string
	MessageErr bool
}

// SetSize updates the view dimensions
func (s *ViewState) SetSize(width, height int) {
	s.Width = width
	s.Height = height
}

// Notify shows an informational message
func (s *ViewState) Notify(format string, args ...any) {
	s.Message = fmt.Sprintf(format, args...)
	s.MessageErr = false
}

// Warn shows a formatted error message
func (s *ViewState) Warn(format string, args ...any) {
	s.Message = fmt.Sprintf(format, args...)
	s.MessageErr = true
}

// Fail shows err as an error message
func (s *ViewState) Fail(err error) {
	s.Message = err.Error()
	s.MessageErr = true
}

// Report shows err when set, else success when non-empty
func (s *ViewState) Report(err error, success string) {
	switch {
	case err != nil:
		s.Fail(err)
	case success != "":
		s.Notify("%s", success)
	}
}

// ClearMessage clears the current message
func (s *ViewState) ClearMessage() {
	s.Message = ""
	s.MessageErr = false
}
