// Command facedex runs the face embedding service and its offline tools.
package main

func main() {
	Execute()
}
