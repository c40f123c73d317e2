package milvus

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDExpr(t *testing.T) {
	expr, err := idExpr("Mira")
	require.NoError(t, err)
	assert.Equal(t, `id == "Mira"`, expr)

	_, err = idExpr(`Mi"ra`)
	require.Error(t, err)
}

func TestParseRecords(t *testing.T) {
	cols := []entity.Column{
		entity.NewColumnVarChar("id", []string{"Mira", "Tom"}),
		entity.NewColumnVarChar("name", []string{"Mira", "Tom"}),
		entity.NewColumnVarChar("description", []string{"a brave knight", "a shy baker"}),
	}

	records := parseRecords(cols)
	require.Len(t, records, 2)
	assert.Equal(t, "Mira", records[0].ID)
	assert.Equal(t, "a brave knight", records[0].Description)
	assert.Equal(t, "Tom", records[1].Name)
}

func TestParseRecordsEmpty(t *testing.T) {
	assert.Empty(t, parseRecords(nil))
}

func TestCharactersSchema(t *testing.T) {
	schema := CharactersSchema()
	assert.Equal(t, CollectionCharacters, schema.CollectionName)
	require.Len(t, schema.Fields, 4)
	assert.True(t, schema.Fields[0].PrimaryKey)
	assert.Equal(t, entity.FieldTypeFloatVector, schema.Fields[1].DataType)
	assert.Equal(t, "1024", schema.Fields[1].TypeParams["dim"])
}
