package geometry

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
)

// DatasetStatus tracks the dataset lifecycle. Only active datasets
// participate in lookups.
type DatasetStatus string

const (
	StatusUploaded   DatasetStatus = "uploaded"
	StatusProcessing DatasetStatus = "processing"
	StatusActive     DatasetStatus = "active"
	StatusError      DatasetStatus = "error"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Area is one named polygon tagged with the service types it represents.
type Area struct {
	Name         string
	ServiceTypes []string
	Ring         []Point

	// Bounding box, precomputed at load time for cheap rejection.
	minLat, maxLat float64
	minLon, maxLon float64
}

// Dataset is an uploaded collection of areas owned by one static provider.
type Dataset struct {
	ID         string
	ProviderID string
	Status     DatasetStatus
	Areas      []Area
}

// datasetFile is the on-disk YAML shape of an uploaded dataset.
type datasetFile struct {
	ID       string     `yaml:"id"`
	Provider string     `yaml:"provider"`
	Areas    []areaFile `yaml:"areas"`
}

type areaFile struct {
	Name         string      `yaml:"name"`
	ServiceTypes []string    `yaml:"service_types"`
	Polygon      [][]float64 `yaml:"polygon"` // [lat, lon] pairs
}

// LoadDataset reads and parses one dataset file. Malformed geometry yields
// a GeometryParseError; the caller excludes the dataset and moves on.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.GeometryParseError{Dataset: path, Err: err}
	}
	return LoadDatasetFromBytes(path, data)
}

// LoadDatasetFromBytes parses dataset content; name is used in errors.
func LoadDatasetFromBytes(name string, data []byte) (*Dataset, error) {
	var file datasetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &domain.GeometryParseError{Dataset: name, Err: err}
	}
	if file.ID == "" {
		return nil, &domain.GeometryParseError{Dataset: name, Err: fmt.Errorf("missing dataset id")}
	}
	if file.Provider == "" {
		return nil, &domain.GeometryParseError{Dataset: file.ID, Err: fmt.Errorf("missing provider")}
	}

	ds := &Dataset{
		ID:         file.ID,
		ProviderID: file.Provider,
		Status:     StatusActive,
		Areas:      make([]Area, 0, len(file.Areas)),
	}

	for _, a := range file.Areas {
		area, err := buildArea(a)
		if err != nil {
			return nil, &domain.GeometryParseError{Dataset: file.ID, Err: err}
		}
		ds.Areas = append(ds.Areas, area)
	}

	return ds, nil
}

func buildArea(a areaFile) (Area, error) {
	if a.Name == "" {
		return Area{}, fmt.Errorf("area missing name")
	}
	if len(a.ServiceTypes) == 0 {
		return Area{}, fmt.Errorf("area %q has no service types", a.Name)
	}
	if len(a.Polygon) < 3 {
		return Area{}, fmt.Errorf("area %q polygon has %d vertices, need at least 3", a.Name, len(a.Polygon))
	}

	area := Area{
		Name:         a.Name,
		ServiceTypes: a.ServiceTypes,
		Ring:         make([]Point, 0, len(a.Polygon)),
		minLat:       math.MaxFloat64,
		maxLat:       -math.MaxFloat64,
		minLon:       math.MaxFloat64,
		maxLon:       -math.MaxFloat64,
	}

	for i, pair := range a.Polygon {
		if len(pair) != 2 {
			return Area{}, fmt.Errorf("area %q vertex %d: want [lat, lon] pair", a.Name, i)
		}
		lat, lon := pair[0], pair[1]
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return Area{}, fmt.Errorf("area %q vertex %d: coordinates out of range", a.Name, i)
		}
		area.Ring = append(area.Ring, Point{Lat: lat, Lon: lon})
		area.minLat = math.Min(area.minLat, lat)
		area.maxLat = math.Max(area.maxLat, lat)
		area.minLon = math.Min(area.minLon, lon)
		area.maxLon = math.Max(area.maxLon, lon)
	}

	return area, nil
}

// contains runs a ray-casting test after a bounding-box rejection.
func (a *Area) contains(p Point) bool {
	if p.Lat < a.minLat || p.Lat > a.maxLat || p.Lon < a.minLon || p.Lon > a.maxLon {
		return false
	}

	inside := false
	n := len(a.Ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := a.Ring[i], a.Ring[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) &&
			p.Lon < (vj.Lon-vi.Lon)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lon {
			inside = !inside
		}
	}
	return inside
}

// distanceKM returns the distance from p to the nearest vertex of the
// area. Vertex distance is a coarse bound but good enough to decide
// whether an approximate match is plausible.
func (a *Area) distanceKM(p Point) float64 {
	best := math.MaxFloat64
	for _, v := range a.Ring {
		if d := haversineKM(p, v); d < best {
			best = d
		}
	}
	return best
}

const earthRadiusKM = 6371.0

func haversineKM(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}
