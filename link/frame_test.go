package link

import (
	"testing"

	netsim "github.com/dfg-98/netsim"
	"github.com/dfg-98/netsim/internal"
)

func buildCfg() BuildConfig {
	return BuildConfig{Algorithm: AlgorithmSimpleHash}
}

func mac(v uint16) []netsim.Bit { return netsim.IntToBits(int(v), 16) }

func TestBuildParseRoundTrip(t *testing.T) {
	payload, _ := netsim.HexToBits("ABCD", 16)
	f, err := Build(mac(0x0002), mac(0x0001), payload, buildCfg())
	if err != nil {
		t.Fatal(err)
	}
	if f.DestinationMAC() != 0x0002 {
		t.Errorf("dest %04X", f.DestinationMAC())
	}
	if f.SourceMAC() != 0x0001 {
		t.Errorf("src %04X", f.SourceMAC())
	}
	if f.DataSize() != 2 {
		t.Errorf("data size %d", f.DataSize())
	}
	if netsim.BitsToHex(f.Payload()) != "ABCD" {
		t.Errorf("payload %s", netsim.BitsToHex(f.Payload()))
	}
	reparsed, err := ParseFrame(f.RawData())
	if err != nil {
		t.Fatal(err)
	}
	if reparsed.SourceMAC() != 0x0001 {
		t.Error("reparse lost source")
	}
	ok, err := Verify(AlgorithmSimpleHash, f.RawData())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("clean frame failed verification")
	}
}

func TestParseFrameIncomplete(t *testing.T) {
	if _, err := ParseFrame(make([]netsim.Bit, 47)); err == nil {
		t.Error("short header accepted")
	}
	// header announcing 2 payload bytes and a 1-byte trailer, with the
	// trailer cut off
	payload, _ := netsim.HexToBits("ABCD", 16)
	f, err := Build(mac(1), mac(2), payload, buildCfg())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseFrame(f.RawData()[:len(f.RawData())-8]); err == nil {
		t.Error("truncated frame accepted")
	}
}

func TestVerifyDetectsFlip(t *testing.T) {
	payload, _ := netsim.HexToBits("DEAD", 16)
	f, err := Build(mac(1), mac(2), payload, buildCfg())
	if err != nil {
		t.Fatal(err)
	}
	raw := append([]netsim.Bit(nil), f.RawData()...)
	raw[HeaderBits] ^= 1 // flip first payload bit
	ok, err := Verify(AlgorithmSimpleHash, raw)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("flipped frame passed verification")
	}
}

func TestBuildCorruptsWithProbabilityOne(t *testing.T) {
	payload, _ := netsim.HexToBits("FFFF", 16)
	f, err := Build(mac(1), mac(2), payload, BuildConfig{
		Algorithm: AlgorithmSimpleHash,
		ErrorProb: 1,
		Rand:      internal.NewSource(5),
	})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := Verify(AlgorithmSimpleHash, f.RawData())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("forced corruption went undetected")
	}
}

func TestBuildDoesNotMutateCallerPayload(t *testing.T) {
	payload, _ := netsim.HexToBits("FFFF", 16)
	orig := append([]netsim.Bit(nil), payload...)
	_, err := Build(mac(1), mac(2), payload, BuildConfig{
		Algorithm: AlgorithmSimpleHash,
		ErrorProb: 1,
		Rand:      internal.NewSource(5),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !netsim.BitsEqual(payload, orig) {
		t.Error("Build mutated caller's payload")
	}
}

func TestEmptyPayloadFrame(t *testing.T) {
	f, err := Build(mac(1), mac(2), nil, buildCfg())
	if err != nil {
		t.Fatal(err)
	}
	if f.DataSize() != 0 || f.ErrorSize() != 0 {
		t.Errorf("sizes %d/%d, want 0/0", f.DataSize(), f.ErrorSize())
	}
	if len(f.RawData()) != HeaderBits {
		t.Errorf("frame length %d", len(f.RawData()))
	}
	ok, err := Verify(AlgorithmSimpleHash, f.RawData())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("empty frame failed verification")
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	if _, _, err := ChecksumFields("crc32", nil); err != ErrUnknownAlgorithm {
		t.Errorf("got %v", err)
	}
	if _, err := Verify("crc32", make([]netsim.Bit, HeaderBits)); err != ErrUnknownAlgorithm {
		t.Errorf("got %v", err)
	}
}

func TestBroadcastFrame(t *testing.T) {
	f, err := Build(mac(0xFFFF), mac(2), nil, buildCfg())
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsBroadcast() {
		t.Error("0xFFFF not recognized as broadcast")
	}
}
