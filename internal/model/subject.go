package model

import "strings"

const subjectTag = "[RFQ:"

// ThreadSubject builds the outbound subject line that carries the RFQ
// identity through supplier reply chains. The mailbox poller routes
// inbound messages back to their negotiation thread by this tag.
func ThreadSubject(rfqID, product string) string {
	s := subjectTag + rfqID + "] Request for quote"
	if product != "" {
		s += ": " + product
	}
	return s
}

// RFQIDFromSubject pulls the RFQ identity back out of a (possibly
// "Re:"-prefixed) subject line. Empty string when the tag is absent.
func RFQIDFromSubject(subject string) string {
	i := strings.Index(subject, subjectTag)
	if i < 0 {
		return ""
	}
	rest := subject[i+len(subjectTag):]
	j := strings.IndexByte(rest, ']')
	if j <= 0 {
		return ""
	}
	return rest[:j]
}
