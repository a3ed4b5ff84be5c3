package session

import (
	"bytes"
	"unicode/utf8"
)

// readLoop streams PTY output as stdout chunks until EOF, a read error, a
// refused emit, or session termination. Chunks are emitted in read order.
func (m *Manager) readLoop(s *Session) {
	defer m.wg.Done()
	defer close(s.readerDone)

	buf := make([]byte, m.cfg.ReadBufferSize)
	var pending []byte // incomplete UTF-8 tail held for the next read

	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			m.mu.RLock()
			status := s.Status
			m.mu.RUnlock()
			if status.Terminal() {
				// Killed while a read was in flight; nothing may follow
				// the exit chunk.
				return
			}

			data := append(pending, buf[:n]...)
			content, rest := validUTF8Prefix(data)
			pending = rest
			if content != "" {
				if emitErr := m.emitChunk(s.ID, ChunkStdout, content); emitErr != nil {
					m.logger.Error("output emit refused, tearing session down",
						"session_id", s.ID, "error", emitErr)
					_ = m.KillSession(s.ID)
					return
				}
			}
		}
		if err != nil {
			// EOF, or EIO once the last slave handle is gone. Flush any
			// held tail as replacement runes.
			if len(pending) > 0 {
				m.mu.RLock()
				status := s.Status
				m.mu.RUnlock()
				if !status.Terminal() {
					_ = m.emitChunk(s.ID, ChunkStdout,
						string(bytes.ToValidUTF8(pending, replacementBytes)))
				}
			}
			return
		}
	}
}

var replacementBytes = []byte("�")

// validUTF8Prefix splits data into a string safe to transport as UTF-8 and
// an incomplete trailing multibyte sequence to retry once more bytes
// arrive. Interior invalid bytes become U+FFFD rather than being dropped.
func validUTF8Prefix(data []byte) (string, []byte) {
	cut := completeBoundary(data)
	content := string(bytes.ToValidUTF8(data[:cut], replacementBytes))
	rest := append([]byte(nil), data[cut:]...)
	return content, rest
}

// completeBoundary returns the length of the longest prefix of data that
// does not end inside a multibyte sequence.
func completeBoundary(data []byte) int {
	end := len(data)
	for back := 1; back < utf8.UTFMax && back <= end; back++ {
		b := data[end-back]
		if !utf8.RuneStart(b) {
			continue
		}
		if seqLen(b) > back {
			return end - back
		}
		return end
	}
	return end
}

// seqLen is the encoded length a UTF-8 lead byte announces.
func seqLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		// Invalid lead byte; the sanitizer replaces it.
		return 1
	}
}
