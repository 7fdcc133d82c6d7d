package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmatch/internal/model"
)

const sampleCSV = `row_id,full_name,make,series,year,price_thb,engine_l,engine_cc,horsepower_hp,fuel_type,gears,drive,type,description,embedding
1,Toyota Yaris Ativ 1.2 Smart,Toyota,Yaris Ativ,2024,"549,000",1.2,1197,94 แรงม้า,petrol,CVT,fwd,sedan,ซีดานประหยัด,"[1,0,0]"
2,Nissan Navara Calibre 2.3,Nissan,Navara,2023,899000,2.3,2298,190,diesel,7 สปีด,rwd,pickup,กระบะ,"[0,1,0]"
3,Honda CR-V e:HEV,Honda,CR-V,2024,1599000 บาท,2.0,1993,184,hybrid,1,awd,suv,เอสยูวี,"0,0,1"
4,,Ghost,,2020,100000,,,,,,,,,
5,Ford Ranger XL,Ford,Ranger,2022,ราคาสอบถาม,,,,,,,,,
6,Mazda2 Sedan,Mazda,Mazda2,2023,629000,1.3,1298,93,petrol,6,fwd,sedan,เมือง,
`

func loadSample(t *testing.T) *Catalog {
	t.Helper()
	table, err := ReadTable(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	c, err := FromTable(table)
	require.NoError(t, err)
	return c
}

func TestLoad_ParsesRows(t *testing.T) {
	c := loadSample(t)

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 2, c.SkippedRows())
	assert.Equal(t, 3, c.Dimension())

	yaris, err := c.Get("1")
	require.NoError(t, err)
	assert.Equal(t, 549000.0, yaris.Price)
	require.NotNil(t, yaris.Horsepower)
	assert.Equal(t, 94, *yaris.Horsepower)
	assert.Nil(t, yaris.Gears)
	require.NotNil(t, yaris.EngineL)
	assert.Equal(t, 1.2, *yaris.EngineL)

	navara, err := c.Get("2")
	require.NoError(t, err)
	require.NotNil(t, navara.Gears)
	assert.Equal(t, 7, *navara.Gears)

	crv, err := c.Get("3")
	require.NoError(t, err)
	assert.Equal(t, 1599000.0, crv.Price)

	_, err = c.Get("4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_DistinctMakesInFirstSeenOrder(t *testing.T) {
	c := loadSample(t)
	assert.Equal(t, []string{"toyota", "nissan", "honda", "mazda"}, c.Makes())
	assert.Equal(t, []string{"yaris ativ", "navara", "cr-v", "mazda2"}, c.Series())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestLoad_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeff"+sampleCSV), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())
}

func TestReadTable_RequiresNameAndPrice(t *testing.T) {
	_, err := ReadTable(strings.NewReader("make,price\nToyota,1\n"))
	assert.ErrorContains(t, err, "name")
	_, err = ReadTable(strings.NewReader("name,make\nYaris,Toyota\n"))
	assert.ErrorContains(t, err, "price")
}

func TestSearch_OrdersByDistance(t *testing.T) {
	c := loadSample(t)

	hits := c.Search([]float32{0.9, 0.1, 0}, 10)
	require.Len(t, hits, 3, "rows without vectors are not indexed")
	assert.Equal(t, 0, hits[0].Index)
	assert.Equal(t, 1, hits[1].Index)
	assert.Equal(t, 2, hits[2].Index)
	assert.Less(t, hits[0].Distance, hits[1].Distance)

	assert.Len(t, c.Search([]float32{1, 0, 0}, 1), 1)
	assert.Nil(t, c.Search([]float32{1, 0}, 1), "dimension mismatch")
}

func TestSearch_TiesKeepRowOrder(t *testing.T) {
	vehicles := []model.Vehicle{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	c := New(vehicles, [][]float32{{0, 1}, {0, 1}, {1, 0}})
	hits := c.Search([]float32{0, 1}, 3)
	require.Len(t, hits, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{hits[0].Index, hits[1].Index, hits[2].Index})
}

func TestReconstructAndDistance(t *testing.T) {
	c := loadSample(t)

	v, ok := c.Reconstruct(1)
	require.True(t, ok)
	assert.Equal(t, []float32{0, 1, 0}, v)
	v[0] = 9
	again, _ := c.Reconstruct(1)
	assert.Equal(t, float32(0), again[0], "reconstruct returns a copy")

	_, ok = c.Reconstruct(3)
	assert.False(t, ok)
	assert.Equal(t, MaxDistance, c.Distance([]float32{1, 0, 0}, 3))
	assert.InDelta(t, 2.0, c.Distance([]float32{1, 0, 0}, 1), 1e-6)
	assert.InDelta(t, 0.0, c.Distance([]float32{5, 0, 0}, 0), 1e-6, "query is normalized")
}

func TestTable_SetEmbeddingRoundTrip(t *testing.T) {
	table, err := ReadTable(strings.NewReader("name,price\nYaris,500000\n"))
	require.NoError(t, err)

	table.SetEmbedding(0, []float32{0.5, 0.25})
	var buf bytes.Buffer
	require.NoError(t, table.Write(&buf))
	assert.Contains(t, buf.String(), "embedding")

	reread, err := ReadTable(&buf)
	require.NoError(t, err)
	emb, err := reread.Embedding(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, emb)
}
