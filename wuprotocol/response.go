package wuprotocol

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

const (
	resultElement = MethodGetExtendedUpdateInfo2 + "Result"
	urlSuffix     = "Url"
)

// ErrNoRootElement is returned for a response that contains no element at all
var ErrNoRootElement = errors.New("response has no root element")

// ErrJunkAfterRoot is returned when a second element follows the document element
var ErrJunkAfterRoot = errors.New("junk after document element")

// ExtractDownloadResponseURLs returns the file URLs of a GetExtendedUpdateInfo2
// response in document order. A missing result element or a malformed document
// yields an empty slice.
func ExtractDownloadResponseURLs(responseXML string) []string {
	urls, err := ParseDownloadResponse(responseXML)
	if err != nil {
		return []string{}
	}
	return urls
}

// ParseDownloadResponse is ExtractDownloadResponseURLs with the parse error
// surfaced. Only the first result element is inspected; inside it, every
// element whose local name ends in "Url" contributes its text.
func ParseDownloadResponse(responseXML string) ([]string, error) {
	type frame struct {
		isURL    bool
		sawChild bool
		text     strings.Builder
	}

	decoder := xml.NewDecoder(strings.NewReader(responseXML))

	urls := []string{}
	var stack []*frame
	resultDepth := -1
	resultDone := false
	sawRoot := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && sawRoot {
				return nil, ErrJunkAfterRoot
			}
			sawRoot = true
			if n := len(stack); n > 0 {
				stack[n-1].sawChild = true
			}
			inResult := resultDepth >= 0
			if !inResult && !resultDone && t.Name.Local == resultElement {
				resultDepth = len(stack)
				inResult = true
			}
			stack = append(stack, &frame{
				isURL: inResult && strings.HasSuffix(t.Name.Local, urlSuffix),
			})

		case xml.CharData:
			if n := len(stack); n > 0 && stack[n-1].isURL && !stack[n-1].sawChild {
				stack[n-1].text.Write(t)
			}

		case xml.EndElement:
			n := len(stack)
			top := stack[n-1]
			stack = stack[:n-1]
			if top.isURL {
				if text := strings.TrimSpace(top.text.String()); text != "" {
					urls = append(urls, text)
				}
			}
			if resultDepth == len(stack) {
				resultDepth = -1
				resultDone = true
			}
		}
	}

	if !sawRoot {
		return nil, ErrNoRootElement
	}
	return urls, nil
}
