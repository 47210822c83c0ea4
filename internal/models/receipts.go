package models

import "time"

// ReadReceipts maps a recipient to the instant they first read a message.
// Entries are write-once and never keyed by the message sender.
type ReadReceipts map[string]time.Time

// Mark records readerID as having read a message authored by senderID.
func (r ReadReceipts) Mark(senderID, readerID string, at time.Time) bool {
	if readerID == "" || readerID == senderID {
		return false
	}
	if _, ok := r[readerID]; ok {
		return false
	}
	r[readerID] = at
	return true
}

// Has reports whether readerID has read the message.
func (r ReadReceipts) Has(readerID string) bool {
	_, ok := r[readerID]
	return ok
}

func (r ReadReceipts) Clone() ReadReceipts {
	out := make(ReadReceipts, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
