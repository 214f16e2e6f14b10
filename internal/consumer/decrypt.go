package consumer

import (
	"context"

	"go.uber.org/zap"
)

// Decrypter recovers the plaintext of a message value.
type Decrypter interface {
	Decrypt(value string) (string, error)
}

// DecryptingSource decrypts every message read by the wrapped Source. A value
// that fails to decrypt is handed on unchanged so the page still shows it.
type DecryptingSource struct {
	Source
	dec    Decrypter
	logger *zap.Logger
}

// NewDecryptingSource wraps src so that values pass through dec.
func NewDecryptingSource(src Source, dec Decrypter, logger *zap.Logger) *DecryptingSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecryptingSource{Source: src, dec: dec, logger: logger}
}

// Run reads from the wrapped Source, replacing each value with its plaintext.
func (s *DecryptingSource) Run(ctx context.Context, handle Handler) error {
	return s.Source.Run(ctx, func(msg Message) {
		plaintext, err := s.dec.Decrypt(msg.Value)
		if err != nil {
			s.logger.Warn("message decryption failed; passing value through",
				zap.String("source", s.Name()),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			handle(msg)
			return
		}
		s.logger.Debug("message decrypted", zap.String("value", plaintext))
		msg.Value = plaintext
		handle(msg)
	})
}
