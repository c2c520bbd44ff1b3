package protocol

// Telemetry record layout: the encoder position right-justified in
// RecordWidth columns followed by a newline.
const (
	RecordWidth = 12
	RecordSize  = RecordWidth + 1
)

// AppendRecord appends one telemetry record for position to b.
// With a b of capacity RecordSize this does not allocate.
func AppendRecord(b []byte, position uint32) []byte {
	b = AppendPadded(b, position, RecordWidth)
	return append(b, '\n')
}
