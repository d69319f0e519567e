package mesh

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// binaryHeaderSize is the fixed STL binary header length in bytes.
const binaryHeaderSize = 80

// ReadSTLFile loads an STL file (binary or ASCII) into a welded mesh.
func ReadSTLFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: open %s: %w", path, err)
	}
	defer f.Close()
	m, err := ReadSTL(f)
	if err != nil {
		return nil, fmt.Errorf("mesh: read %s: %w", path, err)
	}
	return m, nil
}

// ReadSTL decodes STL data from r, auto-detecting binary vs ASCII encoding.
// Vertices shared between facets are welded so adjacency queries work.
func ReadSTL(r io.Reader) (*Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if isASCIISTL(data) {
		return readASCIISTL(data)
	}
	return readBinarySTL(data)
}

// isASCIISTL sniffs the encoding. Binary files may also begin with "solid",
// so the probe requires an ASCII "facet" keyword early in the stream.
func isASCIISTL(data []byte) bool {
	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return false
	}
	probe := data
	if len(probe) > 1024 {
		probe = probe[:1024]
	}
	return bytes.Contains(probe, []byte("facet"))
}

func readBinarySTL(data []byte) (*Mesh, error) {
	if len(data) < binaryHeaderSize+4 {
		return nil, fmt.Errorf("binary STL too short: %d bytes", len(data))
	}
	count := binary.LittleEndian.Uint32(data[binaryHeaderSize:])
	const recordSize = 50 // normal + 3 vertices (12 float32) + attribute count
	body := data[binaryHeaderSize+4:]
	if uint64(len(body)) < uint64(count)*recordSize {
		return nil, fmt.Errorf("binary STL truncated: %d facets declared, %d bytes of data", count, len(body))
	}
	b := NewBuilder()
	for i := uint32(0); i < count; i++ {
		rec := body[i*recordSize:]
		var p [3]Vec3
		for j := 0; j < 3; j++ {
			off := 12 + j*12 // skip the stored normal, it is recomputed
			p[j] = Vec3{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off:]))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off+4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off+8:]))),
			}
		}
		b.AddTriangle(p[0], p[1], p[2])
	}
	return b.Mesh(), nil
}

func readASCIISTL(data []byte) (*Mesh, error) {
	b := NewBuilder()
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var tri []Vec3
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || fields[0] != "vertex" {
			continue
		}
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: malformed vertex", line)
		}
		var v Vec3
		var errs [3]error
		v.X, errs[0] = strconv.ParseFloat(fields[1], 64)
		v.Y, errs[1] = strconv.ParseFloat(fields[2], 64)
		v.Z, errs[2] = strconv.ParseFloat(fields[3], 64)
		for _, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		tri = append(tri, v)
		if len(tri) == 3 {
			b.AddTriangle(tri[0], tri[1], tri[2])
			tri = tri[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(tri) != 0 {
		return nil, fmt.Errorf("trailing vertices: facet with %d of 3 vertices", len(tri))
	}
	return b.Mesh(), nil
}

// WriteSTLFile writes the mesh as binary STL to path.
func WriteSTLFile(path string, m *Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mesh: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := WriteSTL(w, m); err != nil {
		return fmt.Errorf("mesh: write %s: %w", path, err)
	}
	return w.Flush()
}

// WriteSTL encodes the mesh as binary STL.
func WriteSTL(w io.Writer, m *Mesh) error {
	var header [binaryHeaderSize]byte
	copy(header[:], "pyslm block support mesh")
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(m.TriangleCount())); err != nil {
		return err
	}
	var rec [50]byte
	put := func(off int, v Vec3) {
		binary.LittleEndian.PutUint32(rec[off:], math.Float32bits(float32(v.X)))
		binary.LittleEndian.PutUint32(rec[off+4:], math.Float32bits(float32(v.Y)))
		binary.LittleEndian.PutUint32(rec[off+8:], math.Float32bits(float32(v.Z)))
	}
	for i, t := range m.Triangles {
		put(0, m.FaceNormal(i))
		put(12, m.Vertices[t[0]])
		put(24, m.Vertices[t[1]])
		put(36, m.Vertices[t[2]])
		rec[48], rec[49] = 0, 0
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}
