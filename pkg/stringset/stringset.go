/*
Copyright The Kubedeploy Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package stringset implements a basic set of strings
package stringset

import "sort"

// Set represents a set of strings
type Set map[string]struct{}

// New creates a new empty set of strings
func New() Set {
	return make(Set)
}

// From creates a set of strings given a slice of strings
func From(strings []string) Set {
	result := make(Set, len(strings))
	for _, value := range strings {
		result.Put(value)
	}
	return result
}

// Put a string in the set
func (set Set) Put(key string) {
	set[key] = struct{}{}
}

// Delete deletes a string from the set. If the string doesn't exist
// this is a no-op
func (set Set) Delete(key string) {
	delete(set, key)
}

// Has checks if a string is in the set or not
func (set Set) Has(key string) bool {
	_, ok := set[key]
	return ok
}

// Len returns the cardinality of the set
func (set Set) Len() int {
	return len(set)
}

// ToSortedList returns the strings contained in this set as a sorted
// string slice
func (set Set) ToSortedList() []string {
	result := make([]string, 0, len(set))
	for key := range set {
		result = append(result, key)
	}
	sort.Strings(result)
	return result
}
