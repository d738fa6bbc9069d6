package bridge

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

var testAuthority = Identity{0x01, 0x02, 0x03}

func TestNewSupplyLedger(t *testing.T) {
	tests := []struct {
		name      string
		decimals  uint8
		maxSupply uint64
		authority Identity
		ceiling   uint64
		wantErr   error
	}{
		{name: "valid", decimals: 8, maxSupply: 1_000_000, authority: testAuthority},
		{name: "max decimals", decimals: 18, maxSupply: 1, authority: testAuthority},
		{name: "decimals above 18", decimals: 19, maxSupply: 1, authority: testAuthority, wantErr: ErrInvalidDecimals},
		{name: "zero max supply", decimals: 8, maxSupply: 0, authority: testAuthority, wantErr: ErrInvalidMaxSupply},
		{name: "at default ceiling", decimals: 8, maxSupply: DefaultMaxSupplyCeiling, authority: testAuthority},
		{name: "above default ceiling", decimals: 8, maxSupply: DefaultMaxSupplyCeiling + 1, authority: testAuthority, wantErr: ErrInvalidMaxSupply},
		{name: "above custom ceiling", decimals: 8, maxSupply: 101, authority: testAuthority, ceiling: 100, wantErr: ErrInvalidMaxSupply},
		{name: "default authority", decimals: 8, maxSupply: 1, wantErr: ErrInvalidAuthority},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSupplyLedger(tt.decimals, tt.maxSupply, tt.authority, tt.ceiling)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, s)
				return
			}
			require.NoError(t, err)
			require.Equal(t, uint64(0), s.CurrentSupply)
			require.Equal(t, tt.maxSupply, s.MaxSupply)
			require.Equal(t, tt.decimals, s.Decimals)
			require.Equal(t, tt.authority, s.Authority)
		})
	}
}

func TestSupplyLedger_Increase(t *testing.T) {
	s, err := NewSupplyLedger(8, 1_000_000, testAuthority, 0)
	require.NoError(t, err)

	got, err := s.Increase(400_000)
	require.NoError(t, err)
	require.Equal(t, uint64(400_000), got)

	got, err = s.Increase(600_000)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), got)

	_, err = s.Increase(1)
	require.ErrorIs(t, err, ErrExceedsMaxSupply)
	require.Equal(t, uint64(1_000_000), s.CurrentSupply, "failed increase must not mutate")

	_, err = s.Increase(0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSupplyLedger_IncreaseOverflow(t *testing.T) {
	s := &SupplyLedger{MaxSupply: math.MaxUint64, CurrentSupply: math.MaxUint64 - 1, Authority: testAuthority}

	_, err := s.Increase(2)
	require.ErrorIs(t, err, ErrSupplyOverflow)
	require.Equal(t, uint64(math.MaxUint64-1), s.CurrentSupply)
}

func TestSupplyLedger_Decrease(t *testing.T) {
	s, err := NewSupplyLedger(8, 1_000_000, testAuthority, 0)
	require.NoError(t, err)
	_, err = s.Increase(500)
	require.NoError(t, err)

	_, err = s.Decrease(501)
	require.ErrorIs(t, err, ErrSupplyUnderflow)
	require.Equal(t, uint64(500), s.CurrentSupply)

	got, err := s.Decrease(500)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got)

	_, err = s.Decrease(0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSupplyLedger_RejectsCorruptState(t *testing.T) {
	s := &SupplyLedger{MaxSupply: 10, CurrentSupply: 11, Authority: testAuthority}

	_, err := s.Increase(1)
	require.ErrorIs(t, err, ErrExceedsMaxSupply)
	_, err = s.Decrease(1)
	require.ErrorIs(t, err, ErrExceedsMaxSupply)
	require.Equal(t, uint64(11), s.CurrentSupply)
}

func TestSupplyLedger_CheckAuthority(t *testing.T) {
	s, err := NewSupplyLedger(8, 1_000, testAuthority, 0)
	require.NoError(t, err)

	require.NoError(t, s.CheckAuthority(testAuthority))

	err = s.CheckAuthority(Identity{0x09})
	if !errors.Is(err, ErrInvalidAuthority) {
		t.Fatalf("expected ErrInvalidAuthority, got %v", err)
	}
}

// TestSupplyLedger_RandomSequencesStayInBounds drives seeded random mint/burn
// sequences against a reference counter. Failed steps must leave the supply untouched.
func TestSupplyLedger_RandomSequencesStayInBounds(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		maxSupply := uint64(rng.Int63n(1_000)) + 1
		s, err := NewSupplyLedger(0, maxSupply, testAuthority, 0)
		require.NoError(t, err)

		var want uint64
		for step := 0; step < 500; step++ {
			amount := uint64(rng.Int63n(int64(maxSupply)/4 + 2))
			before := s.CurrentSupply

			if rng.Intn(2) == 0 {
				got, err := s.Increase(amount)
				switch {
				case amount == 0:
					require.ErrorIs(t, err, ErrInvalidAmount)
				case want+amount > maxSupply:
					require.ErrorIs(t, err, ErrExceedsMaxSupply)
				default:
					require.NoError(t, err)
					want += amount
					require.Equal(t, want, got)
				}
			} else {
				got, err := s.Decrease(amount)
				switch {
				case amount == 0:
					require.ErrorIs(t, err, ErrInvalidAmount)
				case amount > want:
					require.ErrorIs(t, err, ErrSupplyUnderflow)
				default:
					require.NoError(t, err)
					want -= amount
					require.Equal(t, want, got)
				}
			}

			if s.CurrentSupply != want {
				t.Fatalf("seed %d step %d: supply %d, want %d (was %d)", seed, step, s.CurrentSupply, want, before)
			}
			require.NoError(t, s.Validate())
			require.LessOrEqual(t, s.CurrentSupply, s.MaxSupply)
		}
	}
}
