// Command psychds-validator validates a Psych-DS dataset directory.
package main

func main() {
	Execute()
}
