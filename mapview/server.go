// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package mapview serves an assembled places document as a Leaflet map.
package mapview

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jcodagnone/cinemap/atlas"
	"github.com/jcodagnone/cinemap/spatial"
	"github.com/jcodagnone/cinemap/utils/textutils"
)

//go:embed index.html
var indexHTML []byte

var errBadNear = errors.New("near must be <lat>,<lng>")

type Server struct {
	places []atlas.PlaceOutput
}

// NewServer creates a server for places. The slice must not be modified
// afterwards.
func NewServer(places []atlas.PlaceOutput) *Server {
	return &Server{places: places}
}

// Handler returns the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/", s.index)
	r.GET("/api/places", s.listPlaces)
	r.GET("/api/places/:index", s.getPlace)

	return r
}

// Run listens on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Handler().Run(addr)
}

func (s *Server) index(ctx *gin.Context) {
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// PlaceMatch is a place and its position within the document.
type PlaceMatch struct {
	Index int `json:"index"`
	atlas.PlaceOutput
}

// listPlaces returns the places, optionally filtered by q (place, director
// or film; case and accent insensitive) and by distance to near within
// radius kilometers.
func (s *Server) listPlaces(ctx *gin.Context) {
	q := strings.TrimSpace(ctx.Query("q"))

	var (
		center *spatial.Point
		radius float64
	)

	if near := ctx.Query("near"); near != "" {
		p, err := parseNear(near)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}

		radius, err = strconv.ParseFloat(ctx.DefaultQuery("radius", "100"), 64)
		if err != nil || radius < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius parameter"})

			return
		}

		center = &p
	}

	ret := []PlaceMatch{}

	for i, p := range s.places {
		if q != "" && !matches(p, q) {
			continue
		}

		if center != nil {
			other := spatial.Point{Lat: p.Lat, Lng: p.Lon}
			if center.HaversineDistance(&other) > radius*1000 {
				continue
			}
		}

		ret = append(ret, PlaceMatch{Index: i, PlaceOutput: p})
	}

	ctx.JSON(http.StatusOK, ret)
}

func (s *Server) getPlace(ctx *gin.Context) {
	i, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid index parameter"})

		return
	}

	if i < 0 || i >= len(s.places) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("place %d not found", i)})

		return
	}

	ctx.JSON(http.StatusOK, PlaceMatch{Index: i, PlaceOutput: s.places[i]})
}

func matches(p atlas.PlaceOutput, q string) bool {
	if textutils.ContainsFolded(p.PlaceName, q) {
		return true
	}

	for _, d := range p.Directors.All() {
		if textutils.ContainsFolded(d.Name, q) {
			return true
		}

		for _, f := range d.Films {
			if textutils.ContainsFolded(f, q) {
				return true
			}
		}
	}

	return false
}

func parseNear(s string) (spatial.Point, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return spatial.Point{}, errBadNear
	}

	var (
		p   spatial.Point
		err error
	)

	if p.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return p, errBadNear
	}

	if p.Lng, err = strconv.ParseFloat(strings.TrimSpace(lng), 64); err != nil {
		return p, errBadNear
	}

	if !p.Valid() {
		return p, errBadNear
	}

	return p, nil
}
