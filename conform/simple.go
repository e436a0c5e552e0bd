package conform

import (
	"errors"

	"github.com/lattice-substrate/json-tokfuzz/tokbase"
	"github.com/lattice-substrate/json-tokfuzz/tokjson"
)

// Simple decodes full in one pass with a full-size token window and
// discards the tokens. It validates nothing; it only shows that decoding
// runs to completion. Any status other than ok or short write is returned
// unchanged.
func Simple(full *tokbase.IOBuffer, opts ...Option) error {
	o := buildOptions(opts)
	dec, err := o.newEngine(0)
	if err != nil {
		return err
	}

	tok := tokbase.NewTokenBuffer(TokBufferArraySize)
	workbuf := make([]byte, tokjson.WorkbufLenMaxInclWorstCase)
	for {
		status := dec.DecodeTokens(tok, full, workbuf)
		switch {
		case status == nil:
			o.logger.Debug("simple session finished", map[string]any{"consumed": full.RI})
			return nil
		case errors.Is(status, tokbase.ErrShortWrite):
			tok.RI = tok.WI
			tok.Compact()
			continue
		}
		return status
	}
}
