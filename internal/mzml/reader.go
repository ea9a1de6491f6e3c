package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"

	"golang.org/x/net/html/charset"

	"github.com/524D/mztrace/spectrum"
)

// Read reads mzML file from an io.Reader
func Read(reader io.Reader) (MzML, error) {
	var mzML MzML

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel

	// We are only interested in mzML content, so skip over indexedmzML
	// and everything else
	for {
		t, tokenErr := d.Token()
		if tokenErr != nil {
			if tokenErr == io.EOF {
				break
			}
			return mzML, tokenErr
		}
		switch t := t.(type) {
		case xml.StartElement:
			if t.Name.Local == "mzML" {
				if err := d.DecodeElement(&mzML.content, &t); err != nil {
					return mzML, err
				}
			}
		}
	}

	err := mzML.traverseScan()
	return mzML, err
}

// binaryDataPars decodes the CV terms in a mzML binarydata section
//
// CV Terms for binary data compression
// MS:1000574 zlib compression
// MS:1000576 No Compression
// MS:1002312 MS-Numpress linear prediction compression
// MS:1002313 MS-Numpress positive integer compression
// MS:1002314 MS-Numpress short logged float compression
// MS:1002746 MS-Numpress linear prediction compression followed by zlib compression
// MS:1002747 MS-Numpress positive integer compression followed by zlib compression
// MS:1002748 MS-Numpress short logged float compression followed by zlib compression
//
// CV Terms for binary data array types
// MS:1000514 m/z array
// MS:1000515 intensity array
//
// CV Terms for binary-data-type
// MS:1000521 32-bit float
// MS:1000523 64-bit float
func binaryDataPars(binaryDataArray *binaryDataArray) (
	bool, bool, bool, bool, error) {
	zlibCompression := bool(false) // Default: no compression
	bits64 := bool(false)          // Default: 32 bits
	mzArray := bool(false)
	intensityArray := bool(false)
	for _, cvParam := range binaryDataArray.CvPar {
		switch cvParam.Accession {
		case `MS:1000574`: // zlib compression
			zlibCompression = true
		case `MS:1000514`: // m/z array
			mzArray = true
		case `MS:1000515`: // intensity array
			intensityArray = true
		case `MS:1000523`: // 64-bit float
			bits64 = true
		case `MS:1002312`, `MS:1002313`, `MS:1002314`,
			`MS:1002746`, `MS:1002747`, `MS:1002748`:
			return false, false, false, false,
				fmt.Errorf("%w (CV term %s)", ErrNumpress, cvParam.Accession)
		}
	}
	return zlibCompression, bits64, mzArray, intensityArray, nil
}

func fillScan(p []spectrum.Peak, binaryDataArray *binaryDataArray) error {
	zlibCompression, bits64, mzArray, intensityArray, err :=
		binaryDataPars(binaryDataArray)
	if err != nil {
		return err
	}
	// We are only interrested in mz and intensity
	if !mzArray && !intensityArray {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(binaryDataArray.Binary)
	if err != nil {
		return err
	}
	if zlibCompression {
		z, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return err
		}
		defer z.Close()
		data, err = io.ReadAll(z)
		if err != nil {
			return err
		}
	}
	size := 4
	if bits64 {
		size = 8
	}
	if len(data)/size != len(p) {
		return fmt.Errorf("%w: %d values, expected %d", ErrArrayLength, len(data)/size, len(p))
	}
	for i := range p {
		var v float64
		if bits64 {
			v = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		} else {
			v = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
		}
		if mzArray {
			p[i].Mz = v
		} else {
			p[i].Intensity = v
		}
	}
	return nil
}

// NumSpecs returns the number of spectra
func (f *MzML) NumSpecs() int {
	return len(f.content.Run.SpectrumList.Spectrum)
}

// RetentionTime returns the retention time of a spectrum in seconds,
// or -1 if the spectrum has none
func (f *MzML) RetentionTime(scanIndex int) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0.0, ErrInvalidScanIndex
	}
	for _, scan := range f.content.Run.SpectrumList.Spectrum[scanIndex].ScanList.Scan {
		for _, cvParam := range scan.CvPar {
			if cvParam.Accession == "MS:1000016" {
				retentionTime, err := strconv.ParseFloat(cvParam.Value, 64)
				// Check if the retention time is in minutes, otherwise assume it's seconds
				if cvParam.UnitAccession == "UO:0000031" ||
					cvParam.UnitAccession == "MS:1000038" {
					retentionTime *= 60
				}

				return retentionTime, err
			}
		}
	}
	return -1.0, nil
}

// ReadScan reads the peaks of a single scan
// scanIndex is the sequence number of the scan in the mzML file,
// This is not the same as the scan number that is specified
// in the mzML file! To read a scan using the mzML number,
// use ReadScan(f, ScanIndex(f, scanNum))
func (f *MzML) ReadScan(scanIndex int) ([]spectrum.Peak, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return nil, ErrInvalidScanIndex
	}
	spec := &f.content.Run.SpectrumList.Spectrum[scanIndex]
	p := make([]spectrum.Peak, spec.DefaultArrayLength)
	for i := range spec.BinaryDataArrayList.BinaryDataArray {
		if err := fillScan(p, &spec.BinaryDataArrayList.BinaryDataArray[i]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Centroid returns true is the spectrum contains centroid peaks
func (f *MzML) Centroid(scanIndex int) (bool, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return false, ErrInvalidScanIndex
	}

	for _, cvParam := range f.content.Run.SpectrumList.Spectrum[scanIndex].CvPar {
		if cvParam.Accession == "MS:1000127" { // centroid spectrum
			return true, nil
		}
	}
	return false, nil
}

// MSLevel returns the MS level of a scan
func (f *MzML) MSLevel(scanIndex int) (int, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0, ErrInvalidScanIndex
	}

	for _, cvParam := range f.content.Run.SpectrumList.Spectrum[scanIndex].CvPar {
		if cvParam.Accession == "MS:1000511" { // ms level
			msLevel, err := strconv.ParseInt(cvParam.Value, 10, 64)
			return int(msLevel), err
		}
	}
	return 1, nil // If nothing else, guess it's MS1
}

// PrecursorMz returns the m/z of the first selected ion of a scan,
// or 0 if the scan has no precursor
func (f *MzML) PrecursorMz(scanIndex int) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0, ErrInvalidScanIndex
	}
	for _, pl := range f.content.Run.SpectrumList.Spectrum[scanIndex].PrecursorList {
		for _, p := range pl.Precursor {
			for _, ion := range p.SelectedIonList.SelectedIon {
				for _, cvParam := range ion.CvPar {
					if cvParam.Accession == "MS:1000744" { // selected ion m/z
						return strconv.ParseFloat(cvParam.Value, 64)
					}
				}
			}
		}
	}
	return 0, nil
}

// traverseScan traverses all scans,
// collects info of all scans and
// and fills the arrays f.index2id and f.id2Index to make scans accessible
func (f *MzML) traverseScan() error {
	f.index2id = make([]string, f.NumSpecs())
	f.id2Index = make(map[string]int, f.NumSpecs())

	for i := range f.content.Run.SpectrumList.Spectrum {
		if err := f.addSpecToIndex(i); err != nil {
			return err
		}
	}
	return nil
}

func (f *MzML) addSpecToIndex(i int) error {
	if i != f.content.Run.SpectrumList.Spectrum[i].Index {
		return ErrInvalidScanIndex
	}
	f.index2id[i] = f.content.Run.SpectrumList.Spectrum[i].ID
	f.id2Index[f.content.Run.SpectrumList.Spectrum[i].ID] = i
	return nil
}

// ScanIndex converts a scan identifier (the string used in the mzML file)
// into an index that is used to access the scans
func (f *MzML) ScanIndex(scanID string) (int, error) {
	if index, ok := f.id2Index[scanID]; ok {
		return index, nil
	}
	return 0, ErrInvalidScanID
}

// ScanID converts a scan index (used to access the scan data) into a scan id
// (used in the mzML file)
func (f *MzML) ScanID(scanIndex int) (string, error) {
	if scanIndex >= 0 && scanIndex < f.NumSpecs() {
		return f.index2id[scanIndex], nil
	}
	return "", ErrInvalidScanIndex
}

// Run decodes all spectra into an in-memory run. Scan indices are the
// positions of the spectra in the file.
func (f *MzML) Run() (*spectrum.Run, error) {
	r := spectrum.NewRun()
	profile := 0
	for i := 0; i < f.NumSpecs(); i++ {
		s, err := f.scan(i)
		if err != nil {
			return nil, fmt.Errorf("scan %d: %w", i, err)
		}
		centroid, err := f.Centroid(i)
		if err != nil {
			return nil, err
		}
		if !centroid {
			profile++
		}
		p, err := f.ReadScan(i)
		if err != nil {
			return nil, fmt.Errorf("scan %d: %w", i, err)
		}
		if err := r.Add(s, spectrum.NewSimple(p)); err != nil {
			return nil, err
		}
	}
	if profile > 0 {
		log.Printf("mzML contains %d profile spectra, profile spectra are used as-is", profile)
	}
	return r, nil
}

func (f *MzML) scan(i int) (spectrum.Scan, error) {
	s := spectrum.Scan{Index: i}
	var err error
	if s.RetentionTime, err = f.RetentionTime(i); err != nil {
		return s, err
	}
	if s.MsLevel, err = f.MSLevel(i); err != nil {
		return s, err
	}
	if s.PrecursorMz, err = f.PrecursorMz(i); err != nil {
		return s, err
	}
	return s, nil
}
