package models

// PublishRequest is the canonical form of one inbound publish, whether it
// came from the command line or an HTTP body.
type PublishRequest struct {
	Message string  `json:"message"`
	Subject *string `json:"subject,omitempty"`
	Topic   string  `json:"topic"`
}

// SubjectOrEmpty returns the subject, or "" when none was given.
func (r PublishRequest) SubjectOrEmpty() string {
	if r.Subject == nil {
		return ""
	}
	return *r.Subject
}

// Acknowledgment is the provider's confirmation of a publish. Field names
// follow the SNS response so callers see the payload unchanged.
type Acknowledgment struct {
	MessageID      string `json:"MessageId"`
	SequenceNumber string `json:"SequenceNumber,omitempty"`
}
