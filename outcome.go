// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

// Outcome classifies a DeliveryEvent.
type Outcome int

const (
	// Delivered indicates the broker acknowledged the record according to
	// the topic's request.required.acks setting.
	Delivered Outcome = iota

	// Failed indicates the record was queued but delivery failed (retries
	// exhausted, message.timeout.ms exceeded, broker rejection, or the
	// producer was closed with the record still buffered).
	Failed

	// Dropped indicates Send refused the record because the queue was full.
	// No delivery report follows.
	Dropped

	// Rejected indicates Send refused the record for any other reason
	// (oversized payload, invalid partition, closed handle). No delivery
	// report follows.
	Rejected
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "Delivered"
	case Failed:
		return "Failed"
	case Dropped:
		return "Dropped"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}
