/*
   Copyright 2025 The DIRPX Authors.

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

package apis

// Sink is the external data stream that receives start/end event pairs.
//
// The sink owns global ordering across objects. Callers only guarantee that
// each object's own starts and ends nest.
type Sink interface {
	// Start opens an event and returns its sequence id.
	Start(eventType EventType, phetioID, typeName, event string, data, metadata map[string]any) int64
	// End closes the event opened with id.
	End(id int64)
}
