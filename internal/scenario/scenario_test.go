package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const checkoutYAML = `name: checkout
description: One order with a payment and a shipment.
events:
  - alias: placed
    command: order.placed
    actor: alice
    payload:
      sku: A-100
  - alias: captured
    command: payment.captured
    caused_by: placed
  - alias: shipped
    command: order.shipped
    caused_by: captured
    metadata:
      carrier: dhl
`

func TestLoadFile_DecodesSteps(t *testing.T) {
	path := writeScenario(t, checkoutYAML)

	sc, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "checkout", sc.Name)
	require.Len(t, sc.Events, 3)
	assert.Equal(t, "placed", sc.Events[0].Alias)
	assert.Equal(t, "alice", sc.Events[0].Actor)
	assert.Equal(t, "A-100", sc.Events[0].Payload["sku"])
	assert.Equal(t, "placed", sc.Events[1].CausedBy)
	assert.Equal(t, "dhl", sc.Events[2].Metadata["carrier"])
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading scenario file")
}

func TestLoadFile_Testdata(t *testing.T) {
	sc, err := LoadFile("testdata/orders.yaml")
	require.NoError(t, err)

	assert.Equal(t, "order-fulfilment", sc.Name)
	require.Len(t, sc.Events, 5)
	assert.Equal(t, "audit-trail", sc.Events[4].Correlation)
}

func TestParse_RejectsUnknownTopLevelField(t *testing.T) {
	doc := `name: typo
extra: true
events:
  - alias: a
    command: ping
`
	_, err := Parse("typo.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extra")
}

func TestParse_RejectsUnknownStepField(t *testing.T) {
	doc := `name: typo
events:
  - alias: a
    commnd: ping
`
	_, err := Parse("typo.yaml", []byte(doc))
	require.Error(t, err)
}

func TestParse_RequiresCommand(t *testing.T) {
	doc := `name: incomplete
events:
  - alias: a
`
	_, err := Parse("incomplete.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command")
}

func TestParse_RequiresAtLeastOneEvent(t *testing.T) {
	doc := `name: hollow
events: []
`
	_, err := Parse("hollow.yaml", []byte(doc))
	require.Error(t, err)
}

func TestParse_RejectsZeroVersion(t *testing.T) {
	doc := `name: versions
events:
  - alias: a
    command: ping
    version: 0
`
	_, err := Parse("versions.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestParse_CausedByMustNameEarlierStep(t *testing.T) {
	doc := `name: dangling
events:
  - alias: a
    command: ping
    caused_by: ghost
`
	_, err := Parse("dangling.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ghost"`)
	assert.Contains(t, err.Error(), "earlier step")
}

func TestParse_CausedByCannotReferenceLaterStep(t *testing.T) {
	doc := `name: forward
events:
  - alias: a
    command: ping
    caused_by: b
  - alias: b
    command: pong
`
	_, err := Parse("forward.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "earlier step")
}

func TestParse_RejectsDuplicateAlias(t *testing.T) {
	doc := `name: twins
events:
  - alias: a
    command: ping
  - alias: a
    command: pong
`
	_, err := Parse("twins.yaml", []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used")
}

func TestParse_WrongTypeSurfacesSchemaError(t *testing.T) {
	doc := `name: badtype
events:
  - alias: a
    command: 7
`
	_, err := Parse("badtype.yaml", []byte(doc))
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Message, "command")
}
