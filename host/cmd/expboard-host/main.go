// Command expboard-host monitors, simulates and probes expansion boards.
package main

func main() {
	Execute()
}
