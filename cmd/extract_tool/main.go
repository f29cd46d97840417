package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Quick header inspection for a local DICOM file, printing the same four
// fields the ingestion pipeline extracts:
//
//	go run ./cmd/extract_tool -in=sample.dcm
func main() {
	inPath := flag.String("in", "", "path to a DICOM (.dcm) file")
	flag.Parse()

	if *inPath == "" {
		log.Fatal("-in is required")
	}

	f, err := os.Open(*inPath)
	if err != nil {
		log.Fatalf("open %s: %v", *inPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		log.Fatalf("stat %s: %v", *inPath, err)
	}

	ds, err := dicom.Parse(f, info.Size(), nil, dicom.SkipPixelData())
	if err != nil {
		log.Fatalf("parse %s: %v", *inPath, err)
	}

	get := func(t tag.Tag) string {
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

	fmt.Printf("StudyInstanceUID: %s\n", get(tag.StudyInstanceUID))
	fmt.Printf("PatientID:        %s\n", get(tag.PatientID))
	fmt.Printf("Modality:         %s\n", get(tag.Modality))
	fmt.Printf("StudyDate:        %s\n", get(tag.StudyDate))
}
