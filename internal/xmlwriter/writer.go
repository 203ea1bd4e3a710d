// =============================================================================
// ykj-wgs - GPX Writer Module
// =============================================================================
//
// This module renders a Document as a GPX 1.1 file. All tracks come first,
// then all waypoints:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <gpx version="1.1" creator="ykj-wgs" xmlns="http://www.topografix.com/GPX/1/1">
//     <trk>                               <!-- One per TrackSegment -->
//       <name>P1</name>
//       <trkseg>
//         <trkpt lat="60.0" lon="25.0"/>  <!-- Coordinates only -->
//       </trkseg>
//     </trk>
//     <wpt lat="60.0" lon="25.0">         <!-- One per input row -->
//       <name>P1 note1</name>
//     </wpt>
//   </gpx>
//
// The element order is fixed by the format, so the document is built as a
// plain element tree and written by hand instead of through struct tags.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/razz0/ykj-wgs/internal/types"
)

// Namespace is the GPX 1.1 namespace.
const Namespace = "http://www.topografix.com/GPX/1/1"

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for GPX generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// Creator is written to the root "creator" attribute.
	// Default: "ykj-wgs"
	Creator string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		Creator:               "ykj-wgs",
		IncludeXMLDeclaration: true,
	}
}

// =============================================================================
// GPX GENERATION
// =============================================================================

// Generate renders doc with the default options.
func Generate(doc types.Document) ([]byte, error) {
	return GenerateWithOptions(doc, DefaultGenerateOptions())
}

// GenerateWithOptions renders doc as a GPX document.
//
// PARAMETERS:
//   - doc: The grouped tracks and waypoints.
//   - options: The generation options.
//
// RETURNS:
//   - The GPX document as a byte slice.
//   - An error if generation fails.
func GenerateWithOptions(doc types.Document, options GenerateOptions) ([]byte, error) {
	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	root := buildDocument(doc, options)
	if err := marshalWithIndent(&buffer, root, options.Indent); err != nil {
		return nil, fmt.Errorf("failed to marshal GPX: %w", err)
	}
	return buffer.Bytes(), nil
}

// =============================================================================
// DOCUMENT BUILDING
// =============================================================================

// XMLElement is a generic element of the output tree.
type XMLElement struct {
	Name       string
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// buildDocument constructs the gpx element tree.
func buildDocument(doc types.Document, options GenerateOptions) XMLElement {
	creator := options.Creator
	if creator == "" {
		creator = DefaultGenerateOptions().Creator
	}

	root := XMLElement{
		Name: "gpx",
		Attributes: []xml.Attr{
			attr("version", "1.1"),
			attr("creator", creator),
			attr("xmlns", Namespace),
		},
	}

	for _, t := range doc.Tracks {
		root.Children = append(root.Children, buildTrackElement(t))
	}
	for _, w := range doc.Waypoints {
		root.Children = append(root.Children, buildWaypointElement(w))
	}
	return root
}

// buildTrackElement constructs one trk element.
//
// STRUCTURE:
//   <trk>
//     <name>A</name>
//     <trkseg>
//       <trkpt lat="60.0" lon="25.0"/>
//     </trkseg>
//   </trk>
func buildTrackElement(t types.TrackSegment) XMLElement {
	seg := XMLElement{Name: "trkseg"}
	for _, p := range t.Points {
		seg.Children = append(seg.Children, XMLElement{
			Name:       "trkpt",
			Attributes: coordinateAttrs(p.Lat, p.Lon),
		})
	}
	return XMLElement{
		Name:     "trk",
		Children: []XMLElement{createSimpleElement("name", t.Name), seg},
	}
}

// buildWaypointElement constructs one wpt element.
func buildWaypointElement(w types.Waypoint) XMLElement {
	return XMLElement{
		Name:       "wpt",
		Attributes: coordinateAttrs(w.Lat, w.Lon),
		Children:   []XMLElement{createSimpleElement("name", w.Label)},
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func coordinateAttrs(lat, lon float64) []xml.Attr {
	return []xml.Attr{
		attr("lat", types.FormatCoordinate(lat)),
		attr("lon", types.FormatCoordinate(lon)),
	}
}

// createSimpleElement creates a simple element with a text value.
func createSimpleElement(name, value string) XMLElement {
	return XMLElement{Name: name, Value: value}
}

// marshalWithIndent writes root and its subtree to buffer.
func marshalWithIndent(buffer *bytes.Buffer, root XMLElement, indent string) error {
	if root.Name == "" {
		return fmt.Errorf("root element has no name")
	}

	buffer.WriteString("<" + root.Name)
	writeAttributes(buffer, root.Attributes)
	buffer.WriteString(">\n")

	for _, child := range root.Children {
		writeElement(buffer, child, indent, 1)
	}

	buffer.WriteString("</" + root.Name + ">\n")
	return nil
}

// writeElement writes an element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	writeIndent(buffer, indent, level)

	buffer.WriteString("<" + element.Name)
	writeAttributes(buffer, element.Attributes)

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		writeIndent(buffer, indent, level)
	}

	buffer.WriteString("</" + element.Name + ">\n")
}

func writeAttributes(buffer *bytes.Buffer, attrs []xml.Attr) {
	for _, a := range attrs {
		fmt.Fprintf(buffer, " %s=\"%s\"", a.Name.Local, escapeXML(a.Value))
	}
}

func writeIndent(buffer *bytes.Buffer, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
