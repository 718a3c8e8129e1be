package model

import "time"

// OutboundMessage is what the orchestrator hands to the messaging gateway.
type OutboundMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// InboundMessage is a raw reply pulled from the gateway mailbox.
type InboundMessage struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"receivedAt"`
}
