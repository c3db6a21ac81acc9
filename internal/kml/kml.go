// Package kml reads and writes KML 2.2 documents built from a
// models.DocumentNode tree.
package kml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Alexander-D-Karpov/photokml/internal/models"
	"github.com/pkg/errors"
)

const (
	Namespace   = "http://www.opengis.net/kml/2.2"
	PathStyleID = "path"
)

// PathStyle is the line style shared by every path of a document. Color is
// in KML aabbggrr notation.
type PathStyle struct {
	Width float64
	Color string
}

type kmlRoot struct {
	XMLName  xml.Name  `xml:"kml"`
	Xmlns    string    `xml:"xmlns,attr,omitempty"`
	Document container `xml:"Document"`
}

type container struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description,omitempty"`
	Styles      []style     `xml:"Style"`
	Folders     []container `xml:"Folder"`
	Placemarks  []placemark `xml:"Placemark"`
}

type placemark struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description,omitempty"`
	TimeStamp   *timeStamp  `xml:"TimeStamp,omitempty"`
	StyleURL    string      `xml:"styleUrl,omitempty"`
	Style       *style      `xml:"Style,omitempty"`
	Point       *point      `xml:"Point,omitempty"`
	LineString  *lineString `xml:"LineString,omitempty"`
}

type timeStamp struct {
	When string `xml:"when"`
}

type point struct {
	Coordinates string `xml:"coordinates"`
}

type lineString struct {
	Tessellate  int    `xml:"tessellate,omitempty"`
	Coordinates string `xml:"coordinates"`
}

type style struct {
	ID        string     `xml:"id,attr,omitempty"`
	IconStyle *iconStyle `xml:"IconStyle,omitempty"`
	LineStyle *lineStyle `xml:"LineStyle,omitempty"`
}

type iconStyle struct {
	Icon icon `xml:"Icon"`
}

type icon struct {
	Href string `xml:"href"`
}

type lineStyle struct {
	Color string  `xml:"color,omitempty"`
	Width float64 `xml:"width,omitempty"`
}

// Encode writes doc as an indented KML document. Coordinates are written
// with six decimals in lon,lat order.
func Encode(w io.Writer, doc *models.DocumentNode, ps PathStyle) error {
	root := kmlRoot{Xmlns: Namespace, Document: toContainer(doc)}
	if doc.PathCount() > 0 {
		root.Document.Styles = []style{{
			ID:        PathStyleID,
			LineStyle: &lineStyle{Color: ps.Color, Width: ps.Width},
		}}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return errors.Wrap(err, "encode kml")
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toContainer(n *models.DocumentNode) container {
	c := container{Name: n.Name, Description: n.Description}
	for _, f := range n.Folders {
		c.Folders = append(c.Folders, toContainer(f))
	}
	for _, pm := range n.Placemarks {
		c.Placemarks = append(c.Placemarks, toPlacemark(pm))
	}
	for _, lp := range n.Paths {
		coords := make([]string, len(lp.Points))
		for i, pt := range lp.Points {
			coords[i] = formatCoordinates(pt.Lat(), pt.Lon())
		}
		c.Placemarks = append(c.Placemarks, placemark{
			Name:       lp.Name,
			StyleURL:   "#" + PathStyleID,
			LineString: &lineString{Tessellate: 1, Coordinates: strings.Join(coords, " ")},
		})
	}
	return c
}

func toPlacemark(pm models.Placemark) placemark {
	out := placemark{
		Name:        pm.Name,
		Description: pm.Description,
		Point:       &point{Coordinates: formatCoordinates(pm.Lat, pm.Lon)},
	}
	if !pm.Time.IsZero() {
		out.TimeStamp = &timeStamp{When: pm.Time.UTC().Format(time.RFC3339)}
	}
	if pm.Icon != "" {
		out.Style = &style{IconStyle: &iconStyle{Icon: icon{Href: pm.Icon}}}
	}
	return out
}

func formatCoordinates(lat, lon float64) string {
	return strconv.FormatFloat(lon, 'f', 6, 64) + "," + strconv.FormatFloat(lat, 'f', 6, 64)
}

// Decode reads a KML document back into a tree. Path vertices carry no
// time since KML line strings do not record one.
func Decode(r io.Reader) (*models.DocumentNode, error) {
	var root kmlRoot
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, errors.Wrap(err, "decode kml")
	}
	return fromContainer(root.Document)
}

func fromContainer(c container) (*models.DocumentNode, error) {
	n := &models.DocumentNode{Name: c.Name, Description: c.Description}
	for _, f := range c.Folders {
		child, err := fromContainer(f)
		if err != nil {
			return nil, err
		}
		n.Folders = append(n.Folders, child)
	}
	for _, pm := range c.Placemarks {
		switch {
		case pm.Point != nil:
			coords, err := parseCoordinates(pm.Point.Coordinates)
			if err != nil {
				return nil, errors.Wrapf(err, "placemark %q", pm.Name)
			}
			if len(coords) != 1 {
				return nil, fmt.Errorf("placemark %q: expected one coordinate, got %d", pm.Name, len(coords))
			}
			out := models.Placemark{
				Name:        pm.Name,
				Description: pm.Description,
				Lat:         coords[0].Lat(),
				Lon:         coords[0].Lon(),
			}
			if pm.TimeStamp != nil {
				if t, err := time.Parse(time.RFC3339, strings.TrimSpace(pm.TimeStamp.When)); err == nil {
					out.Time = t
				}
			}
			if pm.Style != nil && pm.Style.IconStyle != nil {
				out.Icon = pm.Style.IconStyle.Icon.Href
			}
			n.Placemarks = append(n.Placemarks, out)
		case pm.LineString != nil:
			coords, err := parseCoordinates(pm.LineString.Coordinates)
			if err != nil {
				return nil, errors.Wrapf(err, "path %q", pm.Name)
			}
			n.Paths = append(n.Paths, models.LinePath{Name: pm.Name, Points: coords})
		}
	}
	return n, nil
}

// parseCoordinates reads a KML coordinate tuple list: whitespace separated
// lon,lat[,alt] tuples.
func parseCoordinates(s string) ([]models.GeoPoint, error) {
	var pts []models.GeoPoint
	for _, tuple := range strings.Fields(s) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("malformed coordinate %q", tuple)
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, err
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, err
		}
		pt, err := models.NewGeoPoint(time.Time{}, lat, lon)
		if err != nil {
			return nil, err
		}
		pts = append(pts, pt)
	}
	return pts, nil
}
