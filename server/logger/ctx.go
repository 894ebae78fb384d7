package logger

// Ctx is the logging context for each logging entry.
type Ctx map[string]interface{}

// WithCtx returns a merge of both contexts. Keys from newCtx override the
// existing ones and neither of the maps is modified.
func (c Ctx) WithCtx(newCtx Ctx) Ctx {
	switch {
	case len(c) == 0:
		return newCtx
	case len(newCtx) == 0:
		return c
	}

	ret := make(Ctx, len(c)+len(newCtx))

	for k, v := range c {
		ret[k] = v
	}

	for k, v := range newCtx {
		ret[k] = v
	}

	return ret
}
