// Command rpcclient calls a service's /http/ endpoints and follows its /sse/
// streams from the command line.
package main

func main() {
	Execute()
}
