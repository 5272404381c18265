// Package models defines domain entities and persistence interfaces for mzsearch.
//
// The package contains two categories of types:
//
// 1. In-memory peak list data: the structures a search reads from and writes back into
//   - [PeakList] : Named, ordered collection of [Row] values
//   - [Row] : One detected feature with its best [Peak] and attached identifications
//   - [Scan] : MS scan with precursor information and either centroided or profile [DataPoint] values
//   - [PeptideHit] / [Identification] : Search results and the row annotation built from them
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [SearchJob] : One submission to a Mascot server, tracking status, progress and result location
//   - [PersistedIdentification] : An identification recorded against a search and a row index
//
// Persistent entities are [Record] values stored through a [Store], listed with [Criteria].
package models
