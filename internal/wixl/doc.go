// Package wixl drives the msitools executables used to assemble an MSI:
// wixl-heat (harvester) and wixl (linker).
//
// Both tools are treated as opaque collaborators invoked through their
// command-line contracts. The Toolset interface decouples the pipeline from
// process spawning and lets tests substitute fakes.
package wixl
