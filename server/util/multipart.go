package util

import (
	"mime/multipart"
	"net/http"
)

type MultipartValues map[string]string

type MultipartFile struct {
	Field  string
	File   multipart.File
	Header *multipart.FileHeader
}

type ParsedMultipart struct {
	Values MultipartValues
	Files  []MultipartFile
}

func (pm *ParsedMultipart) CloseFiles() {
	for _, mf := range pm.Files {
		if mf.File != nil {
			mf.File.Close()
		}
	}
}

func (pm *ParsedMultipart) FileByKey(key string) *MultipartFile {
	for _, mf := range pm.Files {
		if mf.Field == key {
			return &mf
		}
	}

	return nil
}

// ParseMultipart parses a multipart/form-data body. Files are not buffered
// beyond maxMemory; larger parts spill to temporary files managed by the
// standard library. Size enforcement against the configured upload limit
// happens in the blob layer, so only an overall request cap is applied here.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxMemory, maxRequestSize int64) (*ParsedMultipart, error) {
	if maxRequestSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}

	values := extractValues(r)
	files := extractFiles(r)

	return &ParsedMultipart{
		Values: values,
		Files:  files,
	}, nil
}

func extractValues(r *http.Request) MultipartValues {
	values := make(MultipartValues)

	if r.MultipartForm != nil {
		for key, arr := range r.MultipartForm.Value {
			if len(arr) > 0 {
				values[key] = arr[0]
			}
		}
	}

	return values
}

func extractFiles(r *http.Request) []MultipartFile {
	var filesOut []MultipartFile

	for key, fhs := range r.MultipartForm.File {
		for _, fh := range fhs {
			f, err := fh.Open()
			if err != nil {
				rl := FromContext(r.Context())
				if rl != nil {
					rl.Errorf("skipped file, could not open: %s: %v", fh.Filename, err)
				}
				continue
			}

			filesOut = append(filesOut, MultipartFile{Field: key, File: f, Header: fh})
		}
	}

	return filesOut
}
