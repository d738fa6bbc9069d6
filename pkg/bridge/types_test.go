package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIdentity_TextRoundTrip(t *testing.T) {
	id := Identity{0xde, 0xad, 0xbe, 0xef}
	text, err := id.MarshalText()
	require.NoError(t, err)

	var got Identity
	require.NoError(t, got.UnmarshalText(text))
	require.Equal(t, id, got)
	require.False(t, got.IsZero())
	require.True(t, Identity{}.IsZero())
}

func TestParseIdentity_RejectsWrongLength(t *testing.T) {
	_, err := ParseIdentity("3mJr7AoUXx2Wqd")
	require.Error(t, err)

	_, err = ParseIdentity("")
	require.Error(t, err)
}

func TestParseNonce(t *testing.T) {
	n, err := ParseNonce("0x" + strings.Repeat("0a", 32))
	require.NoError(t, err)
	require.Equal(t, byte(0x0a), n[0])
	require.Equal(t, "0x"+strings.Repeat("0a", 32), n.String())

	_, err = ParseNonce("0x0a0b")
	require.Error(t, err)
	_, err = ParseNonce(strings.Repeat("0a", 32))
	require.Error(t, err, "missing 0x prefix")
}

func TestEventJSON(t *testing.T) {
	ev := CrossChainTransferReceived{
		SourceChain: 1,
		Sender:      Identity{0x01},
		Recipient:   Identity{0x02},
		Amount:      250,
		Nonce:       Nonce{0x03},
	}
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"amount":"250"`)

	decoded, err := DecodeEvent(KindCrossChainTransferReceived, raw)
	require.NoError(t, err)
	require.Equal(t, ev, decoded)

	_, err = DecodeEvent("unknown", raw)
	require.Error(t, err)
}

func TestEventRecordJSON(t *testing.T) {
	rec := NewEventRecord("asset-1", TokensMinted{Recipient: Identity{0x09}, Amount: 5, NewSupply: 7}, time.Unix(1_700_000_000, 0).UTC())
	rec.Seq = 3

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"kind":"tokens_minted"`)

	var decoded EventRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, rec.ID, decoded.ID)
	require.Equal(t, int64(3), decoded.Seq)
	require.Equal(t, rec.Event, decoded.Event)
	require.True(t, rec.CreatedAt.Equal(decoded.CreatedAt))

	require.Error(t, json.Unmarshal([]byte(`{"kind":"bogus","payload":{}}`), &decoded))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1.5", FormatAmount(150_000_000, 8))
	require.Equal(t, "42", FormatAmount(42, 0))
	require.Equal(t, "0.000000000000000001", FormatAmount(1, 18))
}

func TestCode(t *testing.T) {
	require.Equal(t, "ok", Code(nil))
	require.Equal(t, "nonce_already_used", Code(fmt.Errorf("wrapped: %w", ErrNonceAlreadyUsed)))
	require.Equal(t, "invalid_chain_id", Code(ErrInvalidChainID))
	require.Equal(t, "internal", Code(fmt.Errorf("boom")))
}
