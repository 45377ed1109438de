package cache

// Field names of a stored entry.
const (
	FieldPayload     = "payload"
	FieldETag        = "etag"
	FieldContentType = "contentType"
	FieldEncoding    = "encoding"
)

// Entry is a cached response body together with its metadata.
type Entry struct {
	// Payload is the response body.
	Payload string

	// ETag is the validator served to clients, including quotes.
	ETag string

	// ContentType is the response Content-Type header.
	ContentType string

	// Encoding is the character encoding of Payload, usually the charset
	// parameter of ContentType.
	Encoding string
}

// Outcome classifies a conditional fetch.
type Outcome int

const (
	// OutcomeMiss means nothing is stored under the key.
	OutcomeMiss Outcome = iota
	// OutcomeHit means the entry was returned to a client without a validator.
	OutcomeHit
	// OutcomeNotModified means the client validator matches the stored one.
	OutcomeNotModified
	// OutcomeChanged means the client validator is stale and the entry was returned.
	OutcomeChanged
)

// String returns the metric label of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeMiss:
		return "miss"
	case OutcomeHit:
		return "hit"
	case OutcomeNotModified:
		return "not_modified"
	case OutcomeChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// QueryResult is the answer of Engine.FetchIfChanged.
//
// UpsertNeeded is set on a miss and the caller should regenerate the
// response. When UpsertNeeded is false and StoredETag is empty the client
// copy is current. Otherwise Payload and StoredETag carry the stored entry.
type QueryResult struct {
	UpsertNeeded bool
	Payload      string
	StoredETag   string
	ContentType  string
	Encoding     string
	Outcome      Outcome
}

// NotModified reports whether the client copy is current.
func (r QueryResult) NotModified() bool {
	return !r.UpsertNeeded && r.StoredETag == ""
}

// Entry returns the stored entry carried by the result.
func (r QueryResult) Entry() Entry {
	return Entry{
		Payload:     r.Payload,
		ETag:        r.StoredETag,
		ContentType: r.ContentType,
		Encoding:    r.Encoding,
	}
}

func missResult() QueryResult {
	return QueryResult{UpsertNeeded: true, Outcome: OutcomeMiss}
}

func notModifiedResult() QueryResult {
	return QueryResult{Outcome: OutcomeNotModified}
}

func (e Entry) result(outcome Outcome) QueryResult {
	return QueryResult{
		Payload:     e.Payload,
		StoredETag:  e.ETag,
		ContentType: e.ContentType,
		Encoding:    e.Encoding,
		Outcome:     outcome,
	}
}

// fields flattens the entry into field/value pairs for a hash write.
func (e Entry) fields() []interface{} {
	return []interface{}{
		FieldPayload, e.Payload,
		FieldETag, e.ETag,
		FieldContentType, e.ContentType,
		FieldEncoding, e.Encoding,
	}
}

func entryFromFields(fields map[string]string) Entry {
	return Entry{
		Payload:     fields[FieldPayload],
		ETag:        fields[FieldETag],
		ContentType: fields[FieldContentType],
		Encoding:    fields[FieldEncoding],
	}
}
