package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/slushbook/internal/errs"
)

func TestToBase_CupRoundTrip(t *testing.T) {
	t.Parallel()

	ml, typ, err := ToBase(2, "cup")
	require.NoError(t, err)
	require.Equal(t, Volume, typ)
	require.Equal(t, 480.0, ml)

	back, err := FromBase(ml, typ, "cup")
	require.NoError(t, err)
	require.Equal(t, 2.0, back)

	asML, err := FromBase(ml, typ, "ml")
	require.NoError(t, err)
	require.Equal(t, 480.0, asML)

	_, err = FromBase(ml, typ, "g")
	require.ErrorIs(t, err, errs.ErrUnitTypeMismatch)
}

func TestToBase_UnknownUnit(t *testing.T) {
	t.Parallel()

	_, typ, err := ToBase(1, "handful")
	require.ErrorIs(t, err, errs.ErrUnknownUnit)
	require.Equal(t, Unknown, typ)

	_, err = FromBase(1, Volume, "pinch")
	require.ErrorIs(t, err, errs.ErrUnknownUnit)
}

func TestCanonical_CaseAndWhitespace(t *testing.T) {
	t.Parallel()

	cases := map[string]Type{
		"  ML ":     Volume,
		"Fl  Oz":    Volume,
		"fl oz UK":  Volume,
		"KG":        Mass,
		" oz":       Mass,
		"Cup uk":    Volume,
		"teaspoons": Unknown,
	}
	for in, want := range cases {
		require.Equal(t, want, Kind(in), in)
	}
}

func TestOunceIsMassOnly(t *testing.T) {
	t.Parallel()

	g, typ, err := ToBase(1, "oz")
	require.NoError(t, err)
	require.Equal(t, Mass, typ)
	require.InDelta(t, 28.3495, g, 1e-12)

	_, err = FromBase(100, Volume, "oz")
	require.ErrorIs(t, err, errs.ErrUnitTypeMismatch)
}

func TestRoundTrip_AllUnitsWithinTolerance(t *testing.T) {
	t.Parallel()

	quantities := []float64{0, 0.125, 1, 2.5, 3.3333, 17, 250, 1234.5678}
	for _, unit := range Known() {
		for _, q := range quantities {
			base, typ, err := ToBase(q, unit)
			require.NoError(t, err)
			back, err := FromBase(base, typ, unit)
			require.NoError(t, err)
			if q == 0 {
				require.Equal(t, 0.0, back)
				continue
			}
			require.LessOrEqual(t, math.Abs(back-q)/q, 1e-9, "%v %s", q, unit)
		}
	}
}

func TestDefaultUnitFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, "cup", DefaultUnitFor("en_us"))
	require.Equal(t, "cup", DefaultUnitFor("US"))
	require.Equal(t, "ml", DefaultUnitFor("da"))
	require.Equal(t, "ml", DefaultUnitFor("en"))
	require.Equal(t, "ml", DefaultUnitFor(""))
	require.Equal(t, "oz", DefaultMassUnitFor("en_us"))
	require.Equal(t, "g", DefaultMassUnitFor("fr"))
}

func TestAllowedUnitsFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"ml", "dl", "l", "g"}, AllowedUnitsFor("DA"))
	require.Equal(t, []string{"ml", "l", "g"}, AllowedUnitsFor("de"))
	require.Equal(t, []string{"ml", "l", "g"}, AllowedUnitsFor("FR"))
	require.Equal(t, []string{"ml", "l", "oz", "g"}, AllowedUnitsFor("en"))
	require.Equal(t, []string{"cup", "tbsp", "tsp", "fl oz", "oz", "g"}, AllowedUnitsFor("EN_US"))
	require.Equal(t, []string{"ml", "l", "oz", "g"}, AllowedUnitsFor("xx"))

	// returned slices are copies
	l := AllowedUnitsFor("da")
	l[0] = "gallon"
	require.Equal(t, "ml", AllowedUnitsFor("da")[0])
}

func TestRoundForDisplay(t *testing.T) {
	t.Parallel()

	require.Equal(t, 16.23, RoundForDisplay(16.2307))
	require.Equal(t, 2.0, RoundForDisplay(2.0000000001))
}
