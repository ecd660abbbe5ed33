// Package catalog loads survey tracer catalogs: a data sample and a sample of
// randoms describing the survey geometry.
//
// A catalog is described by a spec string of two components joined by "::",
// data first and randoms second:
//
//	plaintext:path=galaxies.txt,weight=3::plaintext:path=randoms.txt,weight=3
//	uniform:n=10000,box=1000,seed=1::uniform:n=100000,box=1000,seed=2
//
// Each component is "name" optionally followed by ":" and comma-separated
// key=value arguments. The name selects a [Factory] from the source
// [Registry]. Built-in sources are "uniform", "plaintext" and "sqlite".
//
// [TracerCatalog.Load] reads both samples once and derives the box that
// encloses them. The observer sits at the origin of the survey coordinates;
// [TracerCatalog.Origin] is the lower box corner in those coordinates.
package catalog
