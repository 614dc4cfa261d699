package loader_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvmatch/loader"
)

func TestLoadItems(t *testing.T) {
	const data = "id,weight,height\na,4,1.5\nb,5,2\n c , 3 ,0\n"

	items, err := loader.LoadItems(strings.NewReader(data), loader.ItemOptions{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "c", items[2].ID())
	assert.Equal(t, []float64{4, 1.5}, items[0].Attrs())

	items, err = loader.LoadItems(strings.NewReader(data), loader.ItemOptions{Columns: []string{"Height"}})
	require.NoError(t, err)
	assert.Equal(t, 1, items[1].Arity())
	assert.Equal(t, 2.0, items[1].Attr(0))

	items, err = loader.LoadItems(strings.NewReader("name;w\nx;1\n"), loader.ItemOptions{IDColumn: "name", Comma: ';'})
	require.NoError(t, err)
	assert.Equal(t, "x", items[0].ID())
}

func TestLoadItems_Errors(t *testing.T) {
	_, err := loader.LoadItems(strings.NewReader(""), loader.ItemOptions{})
	assert.ErrorIs(t, err, loader.ErrEmpty)

	_, err = loader.LoadItems(strings.NewReader("key,w\na,1\n"), loader.ItemOptions{})
	assert.ErrorIs(t, err, loader.ErrHeader)

	_, err = loader.LoadItems(strings.NewReader("id,w\na,1\nb,heavy\n"), loader.ItemOptions{})
	require.ErrorIs(t, err, loader.ErrRecord)
	assert.Contains(t, err.Error(), "line 3")
}

const units = `matchunitid,userid,rank,tier,tsmu,tssigma
100,1,20,3,1500,80
200,2,35,4,1700,60
100,3,24,3,1300,90
300,4,10,1,900,100
`

func TestLoadUnits(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := loader.LoadUnits(strings.NewReader(units), loader.UnitOptions{Entered: at})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "100", got[0].ID)
	assert.Equal(t, []string{"1", "3"}, got[0].Users)
	assert.Equal(t, 24, got[0].Rank)
	assert.InDelta(t, 1400, got[0].Skill, 1e-9)
	assert.Equal(t, at, got[0].Entered)
	assert.Equal(t, 2, got[0].Size())

	assert.Equal(t, "200", got[1].ID)
	assert.Equal(t, "300", got[2].ID)
	assert.Equal(t, 1, got[2].Size())
}

func TestLoadUnits_EnteredAndSkillColumn(t *testing.T) {
	const data = "matchunitid,userid,rank,skill,entered\nu,1,5,10,1700000060\nu,2,5,20,1700000000\n"
	got, err := loader.LoadUnits(strings.NewReader(data), loader.UnitOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got[0].Entered)
	assert.InDelta(t, 15, got[0].Skill, 1e-9)
}

func TestLoadUnits_Errors(t *testing.T) {
	_, err := loader.LoadUnits(strings.NewReader("matchunitid,userid,tsmu\n1,1,1\n"), loader.UnitOptions{})
	assert.ErrorIs(t, err, loader.ErrHeader)

	_, err = loader.LoadUnits(strings.NewReader("matchunitid,userid,rank,tsmu\n1,1,gold,1\n"), loader.UnitOptions{})
	assert.ErrorIs(t, err, loader.ErrRecord)

	_, err = loader.LoadUnits(strings.NewReader("matchunitid,userid,rank,tsmu\n,1,1,1\n"), loader.UnitOptions{})
	assert.ErrorIs(t, err, loader.ErrRecord)
}
