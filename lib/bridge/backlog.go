// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "github.com/bureau-foundation/robolink/lib/packet"

// backlog is the append-only history of log records with a cursor
// marking how many have been delivered. Owned by the Listener.
type backlog struct {
	records []packet.LogRecord
	sent    int
}

func (b *backlog) append(record packet.LogRecord) {
	b.records = append(b.records, record)
}

// unsent returns the records at or after the cursor.
func (b *backlog) unsent() []packet.LogRecord {
	return b.records[b.sent:]
}

// deliver calls send for each unsent record in order, advancing the
// cursor after each success. It stops at the first failure, leaving
// the failed record unsent.
func (b *backlog) deliver(send func(packet.LogRecord) error) error {
	for b.sent < len(b.records) {
		if err := send(b.records[b.sent]); err != nil {
			return err
		}
		b.sent++
	}
	return nil
}

func (b *backlog) len() int { return len(b.records) }
