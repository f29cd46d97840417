package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// makeDICOM builds a minimal DICOM file in memory containing the given
// string elements on top of the required file meta group.
func makeDICOM(t *testing.T, elements map[tag.Tag]string) []byte {
	t.Helper()

	meta := map[tag.Tag]string{
		tag.MediaStorageSOPClassUID:    "1.2.840.10008.5.1.4.1.1.2",
		tag.MediaStorageSOPInstanceUID: "1.2.3.4.5.6.7",
		tag.TransferSyntaxUID:          "1.2.840.10008.1.2.1",
	}

	var els []*dicom.Element
	for tg, v := range meta {
		el, err := dicom.NewElement(tg, []string{v})
		require.NoError(t, err)
		els = append(els, el)
	}
	for tg, v := range elements {
		el, err := dicom.NewElement(tg, []string{v})
		require.NoError(t, err)
		els = append(els, el)
	}

	var buf bytes.Buffer
	err := dicom.Write(&buf, dicom.Dataset{Elements: els}, dicom.SkipVRVerification())
	require.NoError(t, err)
	return buf.Bytes()
}

func TestExtractMetadata_AllFields(t *testing.T) {
	data := makeDICOM(t, map[tag.Tag]string{
		tag.StudyInstanceUID: "1.2.3.4",
		tag.PatientID:        "P001",
		tag.Modality:         "CT",
		tag.StudyDate:        "20250101",
	})

	md, err := ExtractMetadata(data)
	require.NoError(t, err)

	assert.Equal(t, "1.2.3.4", md.StudyInstanceUID)
	assert.Equal(t, "P001", md.PatientID)
	assert.Equal(t, "CT", md.Modality)
	assert.Equal(t, "20250101", md.StudyDate)
}

func TestExtractMetadata_OptionalFieldsAbsent(t *testing.T) {
	data := makeDICOM(t, map[tag.Tag]string{
		tag.StudyInstanceUID: "1.2.3.4",
	})

	md, err := ExtractMetadata(data)
	require.NoError(t, err)

	assert.Equal(t, "1.2.3.4", md.StudyInstanceUID)
	// Absent optionals map to empty, never placeholder values.
	assert.Empty(t, md.PatientID)
	assert.Empty(t, md.Modality)
	assert.Empty(t, md.StudyDate)
}

func TestExtractMetadata_MissingStudyInstanceUID(t *testing.T) {
	data := makeDICOM(t, map[tag.Tag]string{
		tag.PatientID: "P001",
	})

	_, err := ExtractMetadata(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "StudyInstanceUID")
}

func TestExtractMetadata_MalformedBytes(t *testing.T) {
	_, err := ExtractMetadata([]byte("this is not a dicom file"))
	require.Error(t, err)
}

func TestExtractMetadata_EmptyBytes(t *testing.T) {
	_, err := ExtractMetadata(nil)
	require.Error(t, err)
}
