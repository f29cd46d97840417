package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// StudyMetadata carries the four canonical fields extracted from a DICOM
// header. StudyInstanceUID is required; the rest are "" when the tag is
// absent.
type StudyMetadata struct {
	StudyInstanceUID string
	PatientID        string
	Modality         string
	StudyDate        string
}

// getStringByTag extracts the first string value for the given tag from
// the dataset, using dicom.MustGetStrings on the element's value so that
// we store clean values like "CT" or "1.2.840...." instead of the verbose
// Element.String() representation.
func getStringByTag(ds *dicom.Dataset, t tag.Tag) string {
	if ds == nil {
		return ""
	}
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return ""
	}
	vals := dicom.MustGetStrings(el.Value)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

// ExtractMetadata parses DICOM bytes and extracts the four canonical
// fields. Pixel data is skipped; only the header is read. It fails when
// the bytes are not parseable DICOM or the StudyInstanceUID tag is
// missing. Pure: no network or storage access.
func ExtractMetadata(data []byte) (StudyMetadata, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData())
	if err != nil {
		return StudyMetadata{}, fmt.Errorf("invalid DICOM: %w", err)
	}

	studyUID := getStringByTag(&ds, tag.StudyInstanceUID)
	if studyUID == "" {
		return StudyMetadata{}, fmt.Errorf("missing StudyInstanceUID")
	}

	return StudyMetadata{
		StudyInstanceUID: studyUID,
		PatientID:        getStringByTag(&ds, tag.PatientID),
		Modality:         getStringByTag(&ds, tag.Modality),
		StudyDate:        getStringByTag(&ds, tag.StudyDate),
	}, nil
}
