package tiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanForKnownVariantsRespectMaxima(t *testing.T) {
	for _, v := range []Variant{NonMultiTileSync, MultiTileSync, SingleDacSingleAdc} {
		t.Run(v.String(), func(t *testing.T) {
			p, err := PlanFor(v)
			require.NoError(t, err)
			assert.LessOrEqual(t, p.ADCTiles, MaxADCTiles)
			assert.LessOrEqual(t, p.DACStart+p.DACTiles, MaxDACTiles)
			assert.NoError(t, p.Validate())
		})
	}
}

func TestPlanForUnrecognized(t *testing.T) {
	p, err := PlanFor(Unrecognized)
	require.ErrorIs(t, err, ErrUnrecognizedVariant)
	assert.Equal(t, Plan{}, p)

	p, err = PlanFor(Variant(42))
	require.ErrorIs(t, err, ErrUnrecognizedVariant)
	assert.Equal(t, Plan{}, p)
}

func TestRegisterScenarios(t *testing.T) {
	tests := []struct {
		name    string
		word    uint32
		variant Variant
		plan    Plan
		wantErr bool
	}{
		{"zero register", 0x00000000, NonMultiTileSync, Plan{MaxADCTiles, MaxDACTiles, 0}, false},
		{"code 01", 0x00010000, SingleDacSingleAdc, Plan{1, 2, 1}, false},
		{"code 10", 0x00020000, MultiTileSync, Plan{MaxADCTiles, MaxDACTiles, 0}, false},
		{"code 11", 0x00030000, Unrecognized, Plan{}, true},
		{"other bits ignored", 0xfffcffff, NonMultiTileSync, Plan{MaxADCTiles, MaxDACTiles, 0}, false},
		{"code 01 with noise", 0x1235abcd &^ 0x00030000 | 0x00010000, SingleDacSingleAdc, Plan{1, 2, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := VariantFromRegister(tt.word)
			assert.Equal(t, tt.variant, v)

			p, err := PlanFor(v)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnrecognizedVariant)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.plan, p)
		})
	}
}

func TestPlanRanges(t *testing.T) {
	p := Plan{ADCTiles: 1, DACTiles: 2, DACStart: 1}
	assert.Equal(t, []int{0}, p.ADCRange())
	assert.Equal(t, []int{1, 2}, p.DACRange())

	assert.Empty(t, Plan{}.ADCRange())
}

func TestPlanValidateRejectsOverflow(t *testing.T) {
	assert.Error(t, Plan{ADCTiles: MaxADCTiles + 1}.Validate())
	assert.Error(t, Plan{DACTiles: MaxDACTiles, DACStart: 1}.Validate())
	assert.Error(t, Plan{ADCTiles: -1}.Validate())
}
