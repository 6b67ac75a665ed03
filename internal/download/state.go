// Package download manages acquisition of the on-device model file.
package download

import "fmt"

// State is the acquisition lifecycle state. It is a closed set: every
// variant carries exactly the payload that state needs, and callers switch
// exhaustively over the concrete types.
type State interface {
	downloadState()

	// UserMessage returns forward-looking, user-facing text for the state.
	UserMessage() string
}

// NotStarted means preconditions pass but no transfer is running.
type NotStarted struct{}

// Downloading carries live transfer progress.
type Downloading struct {
	BytesDone  int64
	TotalBytes int64
}

// Percent returns transfer progress in [0,100].
func (s Downloading) Percent() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	return float64(s.BytesDone) / float64(s.TotalBytes) * 100
}

// Completed means a valid model file is installed at Path.
type Completed struct {
	Path string
}

// Failed means the bounded attempt budget is exhausted. Callers treat this
// as "retry later", not fatal.
type Failed struct {
	Reason string
}

// NeedsStorage means free disk is below the required margin.
type NeedsStorage struct {
	NeedBytes int64
	HaveBytes int64
}

// WaitingForWiFi means the transfer is held for an unmetered connection.
type WaitingForWiFi struct{}

func (NotStarted) downloadState()     {}
func (Downloading) downloadState()    {}
func (Completed) downloadState()      {}
func (Failed) downloadState()         {}
func (NeedsStorage) downloadState()   {}
func (WaitingForWiFi) downloadState() {}

func (NotStarted) UserMessage() string {
	return "Your on-device coach is ready to install."
}

func (s Downloading) UserMessage() string {
	return fmt.Sprintf("Installing your on-device coach... %.0f%% complete.", s.Percent())
}

func (s Completed) UserMessage() string {
	return "Your on-device coach is installed."
}

func (s Failed) UserMessage() string {
	return s.Reason
}

func (s NeedsStorage) UserMessage() string {
	needMB := (s.NeedBytes - s.HaveBytes) / (1024 * 1024)
	return fmt.Sprintf("Free up about %d MB of storage to install your on-device coach.", needMB)
}

func (WaitingForWiFi) UserMessage() string {
	return "Connect to Wi-Fi to install your on-device coach."
}
