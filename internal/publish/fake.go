package publish

// FakePublisher records published summaries for test assertions.
type FakePublisher struct {
	// Summaries contains all summaries that were published.
	Summaries []Summary

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the summary.
func (f *FakePublisher) Publish(summary Summary) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(summary)
	if err != nil {
		return err
	}
	f.Summaries = append(f.Summaries, summary)
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

var (
	_ Publisher = (*FakePublisher)(nil)
	_ Publisher = (*RealPublisher)(nil)
)
