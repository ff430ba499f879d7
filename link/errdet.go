package link

import (
	"errors"
	"math/bits"

	netsim "github.com/dfg-98/netsim"
)

// AlgorithmSimpleHash sums the payload bit values and carries the sum
// in the trailer, left padded to whole bytes.
const AlgorithmSimpleHash = "simple_hash"

// ErrUnknownAlgorithm is returned for an unrecognized error-detection
// algorithm name.
var ErrUnknownAlgorithm = errors.New("link: unknown error detection algorithm")

// ChecksumFields computes the error-size field (8 bits) and the
// trailer for a payload under the named algorithm. An empty payload
// has no trailer and size zero.
func ChecksumFields(algorithm string, payload []netsim.Bit) (sizeField, trailer []netsim.Bit, err error) {
	if algorithm != AlgorithmSimpleHash {
		return nil, nil, ErrUnknownAlgorithm
	}
	if len(payload) == 0 {
		return netsim.IntToBits(0, 8), nil, nil
	}
	sum := 0
	for _, b := range payload {
		sum += b.Int()
	}
	width := bits.Len(uint(sum))
	if width == 0 {
		width = 1
	}
	if width%8 != 0 {
		width += 8 - width%8
	}
	trailer = netsim.IntToBits(sum, width)
	sizeField = netsim.IntToBits(width/8, 8)
	return sizeField, trailer, nil
}

// Verify checks a complete frame bit vector against its trailer under
// the named algorithm. It returns true when the frame is intact.
func Verify(algorithm string, frame []netsim.Bit) (bool, error) {
	if algorithm != AlgorithmSimpleHash {
		return false, ErrUnknownAlgorithm
	}
	if len(frame) < HeaderBits {
		return false, errShortFrame
	}
	errSize := netsim.BitsToInt(frame[40:48])
	if len(frame) < HeaderBits+8*errSize {
		return false, errIncompleteFrame
	}
	payload := frame[HeaderBits : len(frame)-8*errSize]
	trailer := frame[len(frame)-8*errSize:]
	sum := 0
	for _, b := range payload {
		sum += b.Int()
	}
	return sum == netsim.BitsToInt(trailer), nil
}
