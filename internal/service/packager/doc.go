// Package packager orchestrates one MSI packaging run.
//
// It resolves configuration and environment preconditions, walks the staging
// root into a file manifest, drives the harvester to describe the files as a
// component-group fragment, persists the fragment under the build directory,
// and drives the linker to assemble the final package. Control flow is
// strictly linear; any stage failure aborts the run.
package packager
