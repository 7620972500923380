package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tallyocr/internal/domain"
)

func testCatalog() *domain.FieldCatalog {
	return &domain.FieldCatalog{
		DataElements: []domain.NameID{
			{Name: "No. of consultations", ID: "DE1"},
			{Name: "No. of referrals", ID: "DE2"},
		},
		CategoryOptionCombos: []domain.NameID{
			{Name: "2-5m", ID: "COC1"},
			{Name: "6-59m", ID: "COC2"},
		},
	}
}

func TestTableRowMajorExtraction(t *testing.T) {
	tab := &domain.Table{
		Name:    "consultations",
		Headers: []string{"", "2-5m", "6-59m"},
		Rows: [][]string{
			{"No. of consultations", "3", "5"},
		},
	}

	values, err := Table(tab, testCatalog())
	require.NoError(t, err)
	assert.Equal(t, []domain.DataValue{
		{DataElement: "DE1", CategoryOptionCombo: "COC1", Value: "3"},
		{DataElement: "DE1", CategoryOptionCombo: "COC2", Value: "5"},
	}, values)
}

func TestTableSkipsEmptyCells(t *testing.T) {
	tab := &domain.Table{
		Name:    "consultations",
		Headers: []string{"", "2-5m", "6-59m"},
		Rows: [][]string{
			{"No. of consultations", "", "5"},
			{"No. of referrals", " ", ""},
		},
	}

	values, err := Table(tab, testCatalog())
	require.NoError(t, err)
	assert.Equal(t, []domain.DataValue{
		{DataElement: "DE1", CategoryOptionCombo: "COC2", Value: "5"},
	}, values)
}

func TestTableUnresolvedLabelFailsWhole(t *testing.T) {
	tab := &domain.Table{
		Name:    "consultations",
		Headers: []string{"", "2-5m"},
		Rows: [][]string{
			{"No. of consultations", "3"},
			{"No. of admissions", "4"},
		},
	}

	values, err := Table(tab, testCatalog())
	assert.Nil(t, values)
	var fr *domain.FieldResolutionError
	require.ErrorAs(t, err, &fr)
	assert.Equal(t, "dataElement", fr.Kind)
	assert.Equal(t, "No. of admissions", fr.Text)
	assert.Equal(t, 1, fr.Row)
}

func TestTableUnresolvedHeaderFailsWhole(t *testing.T) {
	tab := &domain.Table{
		Name:    "consultations",
		Headers: []string{"", "60m+"},
		Rows: [][]string{
			{"No. of consultations", "3"},
		},
	}

	_, err := Table(tab, testCatalog())
	var fr *domain.FieldResolutionError
	require.ErrorAs(t, err, &fr)
	assert.Equal(t, "categoryOptionCombo", fr.Kind)
	assert.Equal(t, "60m+", fr.Text)
}

func TestTableUnresolvedLabelIgnoredWhenRowEmpty(t *testing.T) {
	tab := &domain.Table{
		Name:    "consultations",
		Headers: []string{"", "2-5m"},
		Rows: [][]string{
			{"Scribble the matcher kept", ""},
			{"No. of referrals", "2"},
		},
	}

	values, err := Table(tab, testCatalog())
	require.NoError(t, err)
	assert.Equal(t, []domain.DataValue{
		{DataElement: "DE2", CategoryOptionCombo: "COC1", Value: "2"},
	}, values)
}

func TestTablesConcatenatesInOrder(t *testing.T) {
	a := &domain.Table{
		Name:    "a",
		Headers: []string{"", "2-5m"},
		Rows:    [][]string{{"No. of consultations", "1"}},
	}
	b := &domain.Table{
		Name:    "b",
		Headers: []string{"", "6-59m"},
		Rows:    [][]string{{"No. of referrals", "2"}},
	}

	values, err := Tables([]*domain.Table{a, b}, testCatalog())
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "DE1", values[0].DataElement)
	assert.Equal(t, "DE2", values[1].DataElement)
}
