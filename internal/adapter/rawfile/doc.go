// Package rawfile reads the raw inputs of a run: monthly GOES magnetometer
// files and the earthquake catalog CSV.
package rawfile
