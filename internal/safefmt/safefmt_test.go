package safefmt

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendDecimal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   uint64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{42, "42"},
		{18446744073709551615, "18446744073709551615"},
	}

	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			t.Parallel()
			got := AppendDecimal(nil, c.in)
			assert.Equal(t, c.want, string(got))
		})
	}
}

func TestAppendSignedDecimal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-17", string(AppendSignedDecimal(nil, -17)))
	assert.Equal(t, "17", string(AppendSignedDecimal(nil, 17)))
	assert.Equal(t, "0", string(AppendSignedDecimal(nil, 0)))
}

// TestHexWidthComplete is Testable Property #3: for every unsigned input,
// the hex formatter emits exactly 2*sizeof(T) digits.
func TestHexWidthComplete(t *testing.T) {
	t.Parallel()

	t.Run("u32", func(t *testing.T) {
		t.Parallel()
		for _, v := range []uint32{0, 1, 0xff, 0xdeadbeef} {
			got := string(AppendHexU32(nil, v))
			require.Len(t, got, 8)
			assert.Equal(t, fmt.Sprintf("%08x", v), got)
		}
	})

	t.Run("u64", func(t *testing.T) {
		t.Parallel()
		for _, v := range []uint64{0, 1, 0xff, 0xdeadbeefcafebabe} {
			got := string(AppendHexU64(nil, v))
			require.Len(t, got, 16)
			assert.Equal(t, fmt.Sprintf("%016x", v), got)
		}
	})

	t.Run("ulong", func(t *testing.T) {
		t.Parallel()
		got := string(AppendHexUlong(nil, 0))
		require.Len(t, got, 16)
	})
}

func TestAppendPointer(t *testing.T) {
	t.Parallel()

	got := string(AppendPointer(nil, 0))
	assert.Equal(t, "0x0000000000000000", got)

	got = string(AppendPointer(nil, 0xdeadbeef))
	assert.Equal(t, "0x00000000deadbeef", got)
}

// TestAppendSignoCoverage is Testable Property #4: a known mnemonic for
// each installed signal, decimal-only for unknown values.
func TestAppendSignoCoverage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		signo syscall.Signal
		want  string
	}{
		{syscall.SIGABRT, "SIGABRT(6)"},
		{syscall.SIGSEGV, "SIGSEGV(11)"},
		{syscall.SIGBUS, "SIGBUS(7)"},
		{syscall.SIGFPE, "SIGFPE(8)"},
		{syscall.SIGILL, "SIGILL(4)"},
	}
	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, c.want, string(AppendSigno(nil, c.signo)))
		})
	}

	t.Run("unknown signal is decimal only", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "99", string(AppendSigno(nil, syscall.Signal(99))))
	})
}

func TestAppendSigReason(t *testing.T) {
	t.Parallel()

	t.Run("S1 SIGSEGV at null", func(t *testing.T) {
		t.Parallel()
		r := SigReason{Signo: syscall.SIGSEGV, Code: segvMapErr, Addr: 0}
		got := string(AppendSigReason(nil, r))
		assert.Equal(t, "SEGV_MAPERR, si_addr=0x0000000000000000", got)
	})

	t.Run("S3 user-sent SIGBUS includes sender pid and uid when known", func(t *testing.T) {
		t.Parallel()
		r := SigReason{
			Signo:       syscall.SIGBUS,
			Code:        siUser,
			Addr:        0x1234,
			SenderPID:   4242,
			SenderUID:   1000,
			SenderKnown: true,
		}
		got := string(AppendSigReason(nil, r))
		assert.Equal(t, "SI_USER, signal sent by PID 4242 with UID 1000, si_addr=0x0000000000001234", got)
	})

	t.Run("user-originated signal with unknown sender does not fabricate PID/UID", func(t *testing.T) {
		t.Parallel()
		r := SigReason{Signo: syscall.SIGBUS, Code: siUser, Addr: 0x1234}
		got := string(AppendSigReason(nil, r))
		assert.Equal(t, "SI_USER, signal sent by unknown sender, si_addr=0x0000000000001234", got)
	})

	t.Run("unknown code renders as hash-number", func(t *testing.T) {
		t.Parallel()
		r := SigReason{Signo: syscall.SIGILL, Code: 99, Addr: 0}
		got := string(AppendSigReason(nil, r))
		assert.Equal(t, "#99, si_addr=0x0000000000000000", got)
	})
}
