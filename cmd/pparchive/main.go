// Command pparchive locates, stages and opens postprocessed model output in
// a tape-backed archive.
package main

func main() {
	Execute()
}
