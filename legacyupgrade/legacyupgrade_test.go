package legacyupgrade_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/das-developers/das2go/codec"
	"github.com/das-developers/das2go/descriptor"
	"github.com/das-developers/das2go/legacyupgrade"
)

func newProps() *descriptor.Descriptor {
	return descriptor.New()
}

func TestUpgradeXYSingleY(t *testing.T) {
	pkt := legacyupgrade.LegacyPacket{
		Props: newProps(),
		Planes: []legacyupgrade.Plane{
			{Kind: legacyupgrade.KindX, Encoding: codec.BEreal, ItemBytes: 8, Units: "us2000"},
			{Kind: legacyupgrade.KindY, Source: "e_density", Encoding: codec.BEreal, ItemBytes: 4, Units: "cm^-3"},
		},
	}

	ds, err := legacyupgrade.Upgrade(pkt)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Rank())

	timeDim, ok := ds.Dim("time")
	require.True(t, ok)
	_, ok = timeDim.Var("center")
	require.True(t, ok)

	dataDim, ok := ds.Dim("e_density")
	require.True(t, ok)
	_, ok = dataDim.Var("center")
	require.True(t, ok)
}

func TestUpgradeXYGroupsSharedSource(t *testing.T) {
	pkt := legacyupgrade.LegacyPacket{
		Props: newProps(),
		Planes: []legacyupgrade.Plane{
			{Kind: legacyupgrade.KindX, Encoding: codec.BEreal, ItemBytes: 8, Units: "us2000"},
			{Kind: legacyupgrade.KindY, Source: "flux", Role: "center", Encoding: codec.BEreal, ItemBytes: 4, Units: "1/cm2/s"},
			{Kind: legacyupgrade.KindY, Source: "flux", Role: "uncertainty", Encoding: codec.BEreal, ItemBytes: 4, Units: "1/cm2/s"},
		},
	}

	ds, err := legacyupgrade.Upgrade(pkt)
	require.NoError(t, err)

	fluxDim, ok := ds.Dim("flux")
	require.True(t, ok)

	_, ok = fluxDim.Var("center")
	require.True(t, ok)
	_, ok = fluxDim.Var("uncertainty")
	require.True(t, ok)
}

func TestUpgradeEventsUnsupported(t *testing.T) {
	pkt := legacyupgrade.LegacyPacket{
		Props: newProps(),
		Planes: []legacyupgrade.Plane{
			{Kind: legacyupgrade.KindX, Encoding: codec.BEreal, ItemBytes: 8, Units: "us2000"},
			{Kind: legacyupgrade.KindX, Encoding: codec.BEreal, ItemBytes: 8, Units: "us2000"},
		},
	}

	_, err := legacyupgrade.Upgrade(pkt)
	require.Error(t, err)
}

func TestUpgradeXYZ(t *testing.T) {
	pkt := legacyupgrade.LegacyPacket{
		Props: newProps(),
		Planes: []legacyupgrade.Plane{
			{Kind: legacyupgrade.KindX, Encoding: codec.BEreal, ItemBytes: 8, Units: "km"},
			{Kind: legacyupgrade.KindY, Encoding: codec.BEreal, ItemBytes: 8, Units: "km"},
			{Kind: legacyupgrade.KindZ, Source: "density", Encoding: codec.BEreal, ItemBytes: 4, Units: "cm^-3"},
		},
	}

	ds, err := legacyupgrade.Upgrade(pkt)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Rank())

	_, ok := ds.Dim("X")
	require.True(t, ok)
	_, ok = ds.Dim("Y")
	require.True(t, ok)
	_, ok = ds.Dim("density")
	require.True(t, ok)
}

func TestUpgradeYScanWaveformRewrite(t *testing.T) {
	ytags := make([]float64, 512)
	for i := range ytags {
		ytags[i] = float64(i)
	}

	pkt := legacyupgrade.LegacyPacket{
		Props: newProps(),
		Planes: []legacyupgrade.Plane{
			{Kind: legacyupgrade.KindX, Encoding: codec.BEreal, ItemBytes: 8, Units: "us2000"},
			{
				Kind: legacyupgrade.KindYScan, Source: "e_spec_dens",
				Encoding: codec.BEreal, ItemBytes: 4, Units: "V**2 m**-2 Hz**-1",
				NItems: 512, YTagSpec: "linear", YTagUnits: "us", YTagValues: ytags,
				Renderer: "waveform",
			},
		},
	}

	ds, err := legacyupgrade.Upgrade(pkt)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Rank())

	timeDim, ok := ds.Dim("time")
	require.True(t, ok)

	_, ok = timeDim.Var("reference")
	require.True(t, ok)
	_, ok = timeDim.Var("offset")
	require.True(t, ok)
	_, ok = timeDim.Var("center")
	require.True(t, ok)

	dataDim, ok := ds.Dim("e_spec_dens")
	require.True(t, ok)
	_, ok = dataDim.Var("center")
	require.True(t, ok)
}

func TestUpgradeYScanNonWaveformGetsOwnCoordDim(t *testing.T) {
	ytags := []float64{1, 2, 4, 8, 16}

	pkt := legacyupgrade.LegacyPacket{
		Props: newProps(),
		Planes: []legacyupgrade.Plane{
			{Kind: legacyupgrade.KindX, Encoding: codec.BEreal, ItemBytes: 8, Units: "us2000"},
			{
				Kind: legacyupgrade.KindYScan, Source: "e_spec_dens",
				Encoding: codec.BEreal, ItemBytes: 4, Units: "V**2 m**-2 Hz**-1",
				NItems: 5, YTagSpec: "nonlinear", YTagUnits: "Hz", YTagValues: ytags,
			},
		},
	}

	ds, err := legacyupgrade.Upgrade(pkt)
	require.NoError(t, err)

	_, ok := ds.Dim("frequency")
	require.True(t, ok)

	timeDim, ok := ds.Dim("time")
	require.True(t, ok)
	_, ok = timeDim.Var("center")
	require.True(t, ok)
}

func TestUpgradeYScanMismatchedSpecsRejected(t *testing.T) {
	pkt := legacyupgrade.LegacyPacket{
		Props: newProps(),
		Planes: []legacyupgrade.Plane{
			{Kind: legacyupgrade.KindX, Encoding: codec.BEreal, ItemBytes: 8, Units: "us2000"},
			{Kind: legacyupgrade.KindYScan, Encoding: codec.BEreal, ItemBytes: 4, Units: "Hz", NItems: 4, YTagSpec: "a", YTagValues: []float64{1, 2, 3, 4}},
			{Kind: legacyupgrade.KindYScan, Encoding: codec.BEreal, ItemBytes: 4, Units: "Hz", NItems: 5, YTagSpec: "b", YTagValues: []float64{1, 2, 3, 4, 5}},
		},
	}

	_, err := legacyupgrade.Upgrade(pkt)
	require.Error(t, err)
}
